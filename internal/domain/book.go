package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Condition describes the physical state of a second-hand book.
type Condition string

const (
	ConditionNew      Condition = "New"
	ConditionLikeNew  Condition = "Like New"
	ConditionVeryGood Condition = "Very Good"
	ConditionGood     Condition = "Good"
	ConditionFair     Condition = "Fair"
	ConditionPoor     Condition = "Poor"
	ConditionUnknown  Condition = "Unknown"
)

var conditionInfo = map[Condition]struct {
	description string
	color       string
}{
	ConditionNew:      {"Brand new, never used, and in perfect condition.", "#4caf50"},
	ConditionLikeNew:  {"Looks new but may have been read. No defects or signs of use.", "#8bc34a"},
	ConditionVeryGood: {"May show some small signs of wear but no tears, creases, or highlights.", "#009688"},
	ConditionGood:     {"Shows signs of wear but remains intact and readable with no major issues.", "#03a9f4"},
	ConditionFair:     {"Noticeably used with possible writing, highlighting, or wear. All pages intact.", "#ff9800"},
	ConditionPoor:     {"Significantly worn with possible damage, but complete and readable.", "#f44336"},
	ConditionUnknown:  {"Condition not specified.", "#9e9e9e"},
}

// ParseCondition maps s case-insensitively onto a known condition. Anything
// else is ConditionUnknown.
func ParseCondition(s string) Condition {
	s = strings.TrimSpace(s)
	for c := range conditionInfo {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return ConditionUnknown
}

// Description returns the human-readable grading text for c.
func (c Condition) Description() string {
	if info, ok := conditionInfo[c]; ok {
		return info.description
	}
	return conditionInfo[ConditionUnknown].description
}

// Color returns the badge color used for c.
func (c Condition) Color() string {
	if info, ok := conditionInfo[c]; ok {
		return info.color
	}
	return conditionInfo[ConditionUnknown].color
}

// Format is the binding or medium of a book.
type Format string

const (
	FormatHardcover  Format = "Hardcover"
	FormatPaperback  Format = "Paperback"
	FormatMassMarket Format = "Mass Market Paperback"
	FormatEbook      Format = "E-book"
	FormatAudiobook  Format = "Audiobook"
	FormatOther      Format = "Other"
)

var formats = []Format{FormatHardcover, FormatPaperback, FormatMassMarket, FormatEbook, FormatAudiobook, FormatOther}

// ParseFormat maps s case-insensitively onto a known format. Anything else
// is FormatOther.
func ParseFormat(s string) Format {
	s = strings.TrimSpace(s)
	for _, f := range formats {
		if strings.EqualFold(string(f), s) {
			return f
		}
	}
	return FormatOther
}

// PlaceholderImage is shown for books without a cover.
const PlaceholderImage = "/placeholder-book.jpg"

// Book is a catalog listing as served by the book backend, after
// normalization. The storefront never mutates books.
type Book struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Condition   Condition       `json:"condition"`
	Format      Format          `json:"format"`
	ImageURL    string          `json:"image_url,omitempty"`
	ISBN        string          `json:"isbn,omitempty"`
	Publisher   string          `json:"publisher,omitempty"`
	Year        int             `json:"year,omitempty"`
	Pages       int             `json:"pages,omitempty"`
	Language    string          `json:"language,omitempty"`
	Status      string          `json:"status,omitempty"`
	SellerID    string          `json:"seller_id,omitempty"`
	SellerName  string          `json:"seller_name,omitempty"`
	SellerEmail string          `json:"seller_email,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

// Image returns the cover URL or the placeholder.
func (b Book) Image() string {
	if b.ImageURL == "" {
		return PlaceholderImage
	}
	return b.ImageURL
}

// ConditionInfo is the grading text and badge color shown next to a
// condition.
type ConditionInfo struct {
	Description string `json:"description"`
	Color       string `json:"color"`
}

// BookDetail is the book page payload: the listing plus its resolved cover
// and condition badge.
type BookDetail struct {
	Book
	Cover         string        `json:"cover"`
	ConditionInfo ConditionInfo `json:"condition_info"`
}

// Detail resolves the display fields for b.
func (b Book) Detail() BookDetail {
	return BookDetail{
		Book:  b,
		Cover: b.Image(),
		ConditionInfo: ConditionInfo{
			Description: b.Condition.Description(),
			Color:       b.Condition.Color(),
		},
	}
}
