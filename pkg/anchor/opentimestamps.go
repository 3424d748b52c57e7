package anchor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// otsCalendars are the public OpenTimestamps calendar servers, tried in
// order until one accepts the submission.
var otsCalendars = []string{
	"https://alice.btc.calendar.opentimestamps.org",
	"https://bob.btc.calendar.opentimestamps.org",
	"https://finney.calendar.eternitywall.com",
}

// OpenTimestampsBackend submits Merkle roots to public Bitcoin calendar
// servers for timestamping.
type OpenTimestampsBackend struct {
	client    *http.Client
	calendars []string
}

// NewOpenTimestampsBackend constructs an OTS anchor backend against the
// default public calendar servers.
func NewOpenTimestampsBackend() *OpenTimestampsBackend {
	return &OpenTimestampsBackend{
		client:    &http.Client{Timeout: 30 * time.Second},
		calendars: otsCalendars,
	}
}

func (b *OpenTimestampsBackend) Name() string { return "opentimestamps" }

func (b *OpenTimestampsBackend) Anchor(ctx context.Context, root vexhash.Hash, metadata Metadata) (Receipt, error) {
	digest := root[:]

	var lastErr error = newErr(CategoryNetwork, fmt.Errorf("no calendars configured"))
	for _, calendar := range b.calendars {
		url := calendar + "/digest"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(digest))
		if err != nil {
			lastErr = newErr(CategoryNetwork, err)
			continue
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := b.client.Do(req)
		if err != nil {
			lastErr = newErr(CategoryNetwork, fmt.Errorf("calendar %s unreachable: %w", calendar, err))
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			lastErr = newErr(CategoryNetwork, fmt.Errorf("calendar %s returned HTTP %d", calendar, resp.StatusCode))
			continue
		}

		var buf bytes.Buffer
		_, readErr := buf.ReadFrom(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = newErr(CategoryNetwork, readErr)
			continue
		}

		proofB64 := base64.StdEncoding.EncodeToString(buf.Bytes())
		anchorID := fmt.Sprintf("%s#%s", calendar, root.Hex())

		return Receipt{
			Backend:    b.Name(),
			RootHash:   root.Hex(),
			AnchorID:   anchorID,
			AnchoredAt: time.Now().UTC(),
			Proof:      &proofB64,
			Metadata:   metadata,
		}, nil
	}

	return Receipt{}, lastErr
}

func (b *OpenTimestampsBackend) Verify(_ context.Context, receipt Receipt) (bool, error) {
	if receipt.Proof == nil {
		return false, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(*receipt.Proof)
	if err != nil {
		return false, newErr(CategoryVerificationFailed, fmt.Errorf("invalid base64 proof: %w", err))
	}
	return len(decoded) > 0, nil
}

func (b *OpenTimestampsBackend) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.calendars[0]+"/digest", nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
