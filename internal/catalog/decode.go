package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/utafrali/bookstore/internal/coerce"
	"github.com/utafrali/bookstore/internal/domain"
)

// listKeys are the fields known to carry a book collection, in priority
// order.
var listKeys = []string{"books", "featured_books", "items", "data"}

// extractList finds the record array in a collection response. It accepts
// a top-level array, then one of listKeys, then the first array-valued
// field in document order. Anything else yields no records and a warning.
func extractList(body []byte) ([]json.RawMessage, coerce.Warnings) {
	var warnings coerce.Warnings
	trimmed := bytes.TrimSpace(body)

	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			warnings.Addf("malformed array: %v", err)
			return nil, warnings
		}
		return list, warnings

	case bytes.HasPrefix(trimmed, []byte("{")):
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			warnings.Addf("malformed object: %v", err)
			return nil, warnings
		}
		for _, key := range listKeys {
			if list, ok := asArray(obj[key]); ok {
				return list, warnings
			}
		}
		key, list, err := firstArrayField(trimmed)
		if err != nil {
			warnings.Addf("scan object: %v", err)
			return nil, warnings
		}
		if key != "" {
			warnings.Addf("no known list field, using %q", key)
			return list, warnings
		}
		warnings.Addf("object has no array field")
		return nil, warnings

	default:
		warnings.Addf("expected array or object, got %q", preview(trimmed))
		return nil, warnings
	}
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

// firstArrayField walks the top-level fields of a JSON object in document
// order and returns the first one holding an array.
func firstArrayField(body []byte) (string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return "", nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return "", nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			if err == io.EOF {
				break
			}
			return "", nil, err
		}
		if list, ok := asArray(value); ok {
			return key, list, nil
		}
	}
	return "", nil, nil
}

// decodeBooks decodes a collection response. Records that are not objects
// or carry no id are skipped with a warning.
func decodeBooks(body []byte) ([]domain.Book, coerce.Warnings) {
	list, warnings := extractList(body)
	books := make([]domain.Book, 0, len(list))
	for i, raw := range list {
		book, ok := decodeBook(raw, &warnings)
		if !ok {
			warnings.Addf("record %d skipped", i)
			continue
		}
		books = append(books, book)
	}
	return books, warnings
}

// decodeSingle decodes a one-book response, either the bare record or one
// wrapped in {"book": {...}}.
func decodeSingle(body []byte) (domain.Book, coerce.Warnings, bool) {
	var warnings coerce.Warnings
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		warnings.Addf("book is not an object")
		return domain.Book{}, warnings, false
	}
	if inner, ok := obj["book"]; ok && bytes.HasPrefix(bytes.TrimSpace(inner), []byte("{")) {
		body = inner
	}
	book, ok := decodeBook(body, &warnings)
	return book, warnings, ok
}

func decodeBook(raw json.RawMessage, w *coerce.Warnings) (domain.Book, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		w.Addf("book record is not an object")
		return domain.Book{}, false
	}

	str := func(field string, keys ...string) string {
		v, _ := coerce.First(obj, keys...)
		return coerce.String(v, field, w)
	}

	id := str("id", "id", "book_id")
	if id == "" {
		w.Addf("book record has no id")
		return domain.Book{}, false
	}

	price := coerce.Decimal(obj["price"], "price", w)
	if price.IsNegative() {
		w.Addf("price: negative value %s for book %s", price, id)
		price = decimal.Zero
	}

	yearRaw, _ := coerce.First(obj, "year", "publication_year")

	return domain.Book{
		ID:          id,
		Title:       str("title", "title"),
		Author:      str("author", "author"),
		Price:       price,
		Description: str("description", "description"),
		Condition:   domain.ParseCondition(str("condition", "condition")),
		Format:      domain.ParseFormat(str("format", "format")),
		ImageURL:    str("image_url", "image_url", "image", "cover_image"),
		ISBN:        str("isbn", "isbn"),
		Publisher:   str("publisher", "publisher"),
		Year:        coerce.Int(yearRaw, "year", w),
		Pages:       coerce.Int(obj["pages"], "pages", w),
		Language:    str("language", "language"),
		Status:      str("status", "status"),
		SellerID:    str("seller_id", "seller_id", "user_id"),
		SellerName:  str("seller_name", "user_name", "seller_name", "owner"),
		SellerEmail: str("seller_email", "user_email", "seller_email"),
		CreatedAt:   coerce.Time(obj["created_at"], "created_at", w),
	}, true
}

func preview(b []byte) string {
	const limit = 40
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
