package export

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/AngelCh415/studio-insights/internal/config"
	"github.com/AngelCh415/studio-insights/internal/logging"
	"github.com/AngelCh415/studio-insights/internal/metrics"
	"github.com/AngelCh415/studio-insights/internal/reports"
)

var ErrSinkNotConfigured = errors.New("export: sink not configured")

const (
	SignatureHeader = "X-Signature"
	DeliveryHeader  = "X-Delivery-ID"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Snapshot is the body posted to the sink.
type Snapshot struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Report      *reports.Result `json:"report"`
}

// Receipt summarises a delivered snapshot.
type Receipt struct {
	ID     string `json:"id"`
	Report string `json:"report"`
	View   string `json:"view"`
	Rows   int    `json:"rows"`
	Bytes  int    `json:"bytes"`
}

// Pusher posts report snapshots to the sink, signing each body with
// HMAC-SHA256 over the raw bytes.
type Pusher struct {
	c      Doer
	url    string
	secret []byte
	now    func() time.Time
}

func NewPusher(c Doer, cfg config.SinkConfig) *Pusher {
	return &Pusher{c: c, url: cfg.URL, secret: []byte(cfg.Secret), now: time.Now}
}

func (p *Pusher) Configured() bool {
	return p.url != "" && len(p.secret) > 0
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *Pusher) Push(ctx context.Context, res *reports.Result) (rec Receipt, err error) {
	defer func() { metrics.RecordExport("push", err) }()
	if !p.Configured() {
		return rec, ErrSinkNotConfigured
	}

	snap := Snapshot{ID: uuid.NewString(), GeneratedAt: p.now().UTC(), Report: res}
	b, err := json.Marshal(snap)
	if err != nil {
		return rec, fmt.Errorf("encode snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(b))
	if err != nil {
		return rec, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(p.secret, b))
	req.Header.Set(DeliveryHeader, snap.ID)

	resp, err := p.c.Do(req)
	if err != nil {
		return rec, fmt.Errorf("push snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return rec, fmt.Errorf("export sink non-2xx: %d body=%s", resp.StatusCode, string(msg))
	}

	rec = Receipt{ID: snap.ID, Report: res.Report, View: res.View, Rows: len(res.Table.Rows), Bytes: len(b)}
	logging.Ctx(ctx).Info().
		Str("delivery_id", rec.ID).
		Str("report", rec.Report).
		Str("view", rec.View).
		Int("bytes", rec.Bytes).
		Msg("snapshot pushed")
	return rec, nil
}
