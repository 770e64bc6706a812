package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/hamed0406/storewatch/internal/domain"
)

const (
	StoreAppStore = "app_store"

	DefaultLookupURL = "https://itunes.apple.com/lookup"
)

// AppStoreProbe asks the iTunes lookup API about a numeric app id.
// The app is listed iff the lookup reports exactly one result.
type AppStoreProbe struct {
	ID        string
	Country   string
	LookupURL string

	checker *HTTPChecker
	dns     bool
}

func NewAppStoreProbe(id, country string, opts Options) *AppStoreProbe {
	if country == "" {
		country = "us"
	}
	return &AppStoreProbe{
		ID:        id,
		Country:   country,
		LookupURL: DefaultLookupURL,
		checker:   NewHTTPChecker(opts.Timeout),
		dns:       opts.DiagnoseDNS,
	}
}

func (p *AppStoreProbe) Name() string { return StoreAppStore }

func (p *AppStoreProbe) StoreURL() string {
	return fmt.Sprintf("https://apps.apple.com/%s/app/id%s", p.Country, url.PathEscape(p.ID))
}

type lookupResponse struct {
	ResultCount int `json:"resultCount"`
}

func (p *AppStoreProbe) Probe(ctx context.Context) Outcome {
	// lookup only searches the US storefront unless told otherwise
	target := p.LookupURL + "?id=" + url.QueryEscape(p.ID) + "&country=" + url.QueryEscape(p.Country)
	resp, err := p.checker.get(ctx, target, true)
	if err != nil {
		return failOpen(StoreAppStore, resp.StatusCode, transportReason(ctx, p.dns, target, err), resp.LatencyMS)
	}
	if resp.StatusCode/100 != 2 {
		return failOpen(StoreAppStore, resp.StatusCode, fmt.Sprintf("lookup returned HTTP %d", resp.StatusCode), resp.LatencyMS)
	}

	var lr lookupResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return failOpen(StoreAppStore, resp.StatusCode, "decode lookup: "+err.Error(), resp.LatencyMS)
	}

	out := Outcome{
		Store:      StoreAppStore,
		Listing:    domain.NotListed,
		StatusCode: resp.StatusCode,
		Reason:     fmt.Sprintf("resultCount=%d", lr.ResultCount),
		LatencyMS:  resp.LatencyMS,
	}
	if lr.ResultCount == 1 {
		out.Listing = domain.Listed
	}
	return out
}
