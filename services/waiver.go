package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"checkin-backend/models"
)

// Waiver markers. Any non-empty value counts as signed.
const (
	WaiverSigned   = "Signed"
	WaiverVerified = "Verified"
)

const (
	DefaultJotformAPIBase = "https://vibee.jotform.com/API"
	verifyPageSize        = 1000
	checkPageSize         = 100
)

// Answer is one named field of a form submission.
type Answer struct {
	Name   string          `json:"name"`
	Answer json.RawMessage `json:"answer"`
}

// Text returns the answer as a string. Structured answers are rendered as
// their JSON text.
func (a Answer) Text() string {
	if len(a.Answer) == 0 || string(a.Answer) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(a.Answer, &s); err == nil {
		return s
	}
	return string(a.Answer)
}

func (a Answer) isOrderField() bool {
	return a.Name == "order" || strings.Contains(strings.ToLower(a.Name), "order")
}

type Submission struct {
	ID      string            `json:"id"`
	Answers map[string]Answer `json:"answers"`
}

// orderedAnswers returns answers sorted by question id for stable matching.
func (s Submission) orderedAnswers() []Answer {
	ids := make([]string, 0, len(s.Answers))
	for id := range s.Answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	out := make([]Answer, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Answers[id])
	}
	return out
}

// OrderNumbers lists the trimmed values of every order answer.
func (s Submission) OrderNumbers() []string {
	var out []string
	for _, a := range s.orderedAnswers() {
		if !a.isOrderField() {
			continue
		}
		if v := strings.TrimSpace(a.Text()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Matches reports whether the submission belongs to order. The first order
// answer is matched by substring; without one, any answer equal to the
// order number counts.
func (s Submission) Matches(order string) bool {
	answers := s.orderedAnswers()
	for _, a := range answers {
		if a.isOrderField() {
			return strings.Contains(a.Text(), order)
		}
	}
	for _, a := range answers {
		if a.Text() == order {
			return true
		}
	}
	return false
}

// SubmissionLister is the form-submission boundary.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context, formID string, offset, limit int) ([]Submission, error)
}

// WaiverClient talks to the Jotform REST API.
type WaiverClient struct {
	baseURL string
	apiKey  func() string
	http    *http.Client
}

// NewWaiverClient reads the API key through apiKey on every call so edits
// in settings apply without a restart.
func NewWaiverClient(baseURL string, apiKey func() string) *WaiverClient {
	if baseURL == "" {
		baseURL = DefaultJotformAPIBase
	}
	return &WaiverClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type submissionsResponse struct {
	ResponseCode int          `json:"responseCode"`
	Message      string       `json:"message"`
	Content      []Submission `json:"content"`
}

func (c *WaiverClient) ListSubmissions(ctx context.Context, formID string, offset, limit int) ([]Submission, error) {
	key := ""
	if c.apiKey != nil {
		key = c.apiKey()
	}
	if key == "" || formID == "" {
		return nil, NewError(CodeVerificationFailure, "jotform api key and form id are required")
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	endpoint := fmt.Sprintf("%s/form/%s/submissions?%s", c.baseURL, url.PathEscape(formID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, WrapError(CodeVerificationFailure, "build request", err)
	}
	req.Header.Set("APIKEY", key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, WrapError(CodeVerificationFailure, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(CodeVerificationFailure, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(CodeVerificationFailure, fmt.Sprintf("jotform HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var sr submissionsResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, WrapError(CodeVerificationFailure, "malformed jotform response", err)
	}
	if sr.ResponseCode != http.StatusOK {
		return nil, NewError(CodeVerificationFailure, fmt.Sprintf("jotform responseCode %d: %s", sr.ResponseCode, sr.Message))
	}
	return sr.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// VerifyResult summarizes one batch verification run.
type VerifyResult struct {
	Submissions   int      `json:"submissions"`
	Orders        int      `json:"orders"`
	Updated       []string `json:"updated"`
	AlreadySigned int      `json:"alreadySigned"`
	Unsigned      int      `json:"unsigned"`
}

// WaiverVerifier reconciles local waiver status with form submissions.
type WaiverVerifier struct {
	lister   SubmissionLister
	guests   *GuestService
	mutation *MutationApplier
	settings func() models.Settings
	log      zerolog.Logger
}

func NewWaiverVerifier(lister SubmissionLister, guests *GuestService, mutation *MutationApplier, settings func() models.Settings, log zerolog.Logger) *WaiverVerifier {
	return &WaiverVerifier{
		lister:   lister,
		guests:   guests,
		mutation: mutation,
		settings: settings,
		log:      log.With().Str("component", "waivers").Logger(),
	}
}

// SubmittedOrders pages through every submission of the form and returns
// the set of order numbers found in order answers.
func (v *WaiverVerifier) SubmittedOrders(ctx context.Context) (map[string]struct{}, int, error) {
	formID := v.settings().JotformFormID
	orders := map[string]struct{}{}
	total := 0
	for offset := 0; ; offset += verifyPageSize {
		page, err := v.lister.ListSubmissions(ctx, formID, offset, verifyPageSize)
		if err != nil {
			return nil, total, verificationFailure(err)
		}
		total += len(page)
		for _, s := range page {
			for _, o := range s.OrderNumbers() {
				orders[NormalizeOrderNumber(o)] = struct{}{}
			}
		}
		if len(page) < verifyPageSize {
			break
		}
	}
	return orders, total, nil
}

// VerifyAll marks every guest with an empty waiver and a matching
// submission as Verified. A failed fetch leaves every record unchanged.
func (v *WaiverVerifier) VerifyAll(ctx context.Context) (VerifyResult, error) {
	res := VerifyResult{Updated: []string{}}
	orders, total, err := v.SubmittedOrders(ctx)
	if err != nil {
		v.log.Error().Err(err).Msg("waiver verification failed, nothing changed")
		return res, err
	}
	res.Submissions = total
	res.Orders = len(orders)

	for _, g := range v.guests.List() {
		if g.HasWaiver() {
			res.AlreadySigned++
			continue
		}
		if _, ok := orders[g.OrderNumber]; !ok {
			res.Unsigned++
			continue
		}
		changed, err := v.mutation.MarkWaiverVerified(ctx, g.OrderNumber)
		if err != nil {
			v.log.Warn().Err(err).Str("order", g.OrderNumber).Msg("could not mark waiver")
			continue
		}
		if changed {
			res.Updated = append(res.Updated, g.OrderNumber)
		} else {
			res.AlreadySigned++
		}
	}

	v.log.Info().
		Int("submissions", res.Submissions).
		Int("updated", len(res.Updated)).
		Int("unsigned", res.Unsigned).
		Msg("waiver verification complete")
	return res, nil
}

// CheckOrder looks for a submission for one order among the most recent
// page of submissions.
func (v *WaiverVerifier) CheckOrder(ctx context.Context, orderNumber string) (bool, error) {
	order := NormalizeOrderNumber(orderNumber)
	if order == "" {
		return false, invalid("order number is required")
	}
	page, err := v.lister.ListSubmissions(ctx, v.settings().JotformFormID, 0, checkPageSize)
	if err != nil {
		return false, verificationFailure(err)
	}
	for _, s := range page {
		if s.Matches(order) {
			return true, nil
		}
	}
	return false, nil
}

func verificationFailure(err error) error {
	if CodeOf(err) == CodeVerificationFailure {
		return err
	}
	return WrapError(CodeVerificationFailure, "list submissions", err)
}
