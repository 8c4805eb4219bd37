package rest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
)

const MAX_PAGE_SIZE = 100

// ListEventsQueryParams holds query parameters for GET /events
type ListEventsQueryParams struct {
	Types   []string `form:"type"`
	TokenID *uint64  `form:"token_id"`

	// Pagination
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// ParseListEventsQuery parses query parameters for GET /events.
// Types may be repeated or comma separated.
func ParseListEventsQuery(c *gin.Context) (*ListEventsQueryParams, error) {
	var params ListEventsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	var types []string
	for _, t := range params.Types {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				types = append(types, part)
			}
		}
	}
	params.Types = types

	// Cap limits
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}

// Validate validates the event query parameters
func (p *ListEventsQueryParams) Validate() error {
	if p.Limit < 1 {
		return fmt.Errorf("limit must be at least 1")
	}
	for _, t := range p.Types {
		if !isEventType(domain.EventType(t)) {
			return fmt.Errorf("unknown event type: %s", t)
		}
	}
	return nil
}

// Filter converts the query parameters into a journal filter
func (p *ListEventsQueryParams) Filter() marketplace.EventFilter {
	types := make([]domain.EventType, 0, len(p.Types))
	for _, t := range p.Types {
		types = append(types, domain.EventType(t))
	}
	return marketplace.EventFilter{
		Types:   types,
		TokenID: p.TokenID,
		Limit:   p.Limit,
		Offset:  p.Offset,
	}
}

func isEventType(t domain.EventType) bool {
	switch t {
	case domain.EventTypeMint, domain.EventTypeList, domain.EventTypeCancel, domain.EventTypeSale,
		domain.EventTypeTransfer, domain.EventTypePayment, domain.EventTypeWithdraw, domain.EventTypeFund:
		return true
	}
	return false
}

// parseTokenID parses the :id path parameter
func parseTokenID(c *gin.Context) (uint64, error) {
	raw := c.Param("id")
	if raw == "" {
		return 0, fmt.Errorf("token id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id: %s", raw)
	}
	return id, nil
}
