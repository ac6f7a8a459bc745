package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"
)

// Page bounds for list endpoints.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Page is a validated offset/limit window over a newest-first listing.
type Page struct {
	Offset int
	Limit  int
}

// Validate checks the window bounds.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.Limit, validation.Required, validation.Min(1), validation.Max(MaxPageLimit)),
	)
}

// ParsePagination reads the offset and limit query parameters. Missing values fall
// back to offset 0 and DefaultPageLimit.
func ParsePagination(c *gin.Context) (Page, error) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return Page{}, fmt.Errorf("offset: must be an integer")
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	if err != nil {
		return Page{}, fmt.Errorf("limit: must be an integer")
	}

	page := Page{Offset: offset, Limit: limit}
	if err := page.Validate(); err != nil {
		return Page{}, err
	}
	return page, nil
}
