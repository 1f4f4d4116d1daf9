package layoutsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"parking-navigator/internal/navigator/models"

	"resty.dev/v3"
)

var ErrParkingNotFound = errors.New("parking not found in layout document")

// ============================================================
// HTTP fetcher
// ============================================================

// Fetcher читает документ раскладок (parkingID -> Layout) по HTTP
// и выбирает из него настроенный участок.
type Fetcher struct {
	client    *resty.Client
	url       string
	parkingID string
}

func NewFetcher(url, parkingID string, timeout time.Duration) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Fetcher{
		client:    client,
		url:       url,
		parkingID: parkingID,
	}
}

func (f *Fetcher) Close() error {
	return f.client.Close()
}

// FetchDocument загружает документ целиком.
func (f *Fetcher) FetchDocument(ctx context.Context) (models.LayoutDocument, error) {
	res, err := f.client.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", f.url, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("get %s: unexpected status %d", f.url, res.StatusCode())
	}

	var doc models.LayoutDocument
	if err := json.Unmarshal(res.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("decode layout document: %w", err)
	}
	return doc, nil
}

// Fetch реализует engine.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context) (string, models.Layout, error) {
	doc, err := f.FetchDocument(ctx)
	if err != nil {
		return "", models.Layout{}, err
	}
	return SelectParking(doc, f.parkingID)
}

// SelectParking возвращает участок по id; без id берётся первый по алфавиту.
func SelectParking(doc models.LayoutDocument, parkingID string) (string, models.Layout, error) {
	if parkingID == "" {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		if len(keys) == 0 {
			return "", models.Layout{}, ErrParkingNotFound
		}
		sort.Strings(keys)
		parkingID = keys[0]
	}

	layout, ok := doc[parkingID]
	if !ok {
		return "", models.Layout{}, fmt.Errorf("%w: %q", ErrParkingNotFound, parkingID)
	}
	return parkingID, layout, nil
}
