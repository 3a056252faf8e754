package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
)

var log = logging.MustGetLogger("currency")

type Rate struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// FallbackRates are used whenever the public rates API cannot be reached.
var FallbackRates = []Rate{
	{From: "USD", To: "EGP", Rate: decimal.RequireFromString("50.0")},
	{From: "USD", To: "AED", Rate: decimal.RequireFromString("13.0")},
}

// ConvertCurrency converts with the direct from->to rate. When no such rate
// exists the amount is returned unchanged and a warning is logged.
func ConvertCurrency(amount decimal.Decimal, from, to string, rates []Rate) decimal.Decimal {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount
	}
	for _, r := range rates {
		if strings.EqualFold(r.From, from) && strings.EqualFold(r.To, to) {
			return amount.Mul(r.Rate)
		}
	}
	log.Warningf("no exchange rate %s->%s, amount left unconverted", from, to)
	return amount
}

// FormatCurrency renders 1234.5 as "1,234.50 EGP".
func FormatCurrency(amount decimal.Decimal, code string) string {
	s := amount.Abs().StringFixed(2)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if amount.IsNegative() && !amount.Round(2).IsZero() {
		b.WriteByte('-')
	}
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	b.WriteString(frac)
	if code != "" {
		b.WriteByte(' ')
		b.WriteString(strings.ToUpper(code))
	}
	return b.String()
}

type apiResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// FetchRates asks the rates API for base->X rates. Any failure returns the
// fallback rates with ok=false.
func FetchRates(ctx context.Context, client *http.Client, baseURL, base string, wanted []string) (rates []Rate, ok bool) {
	rates, err := fetch(ctx, client, baseURL, base, wanted)
	if err != nil {
		log.Warningf("exchange rate fetch failed: %v", err)
		return append([]Rate(nil), FallbackRates...), false
	}
	return rates, true
}

func fetch(ctx context.Context, client *http.Client, baseURL, base string, wanted []string) ([]Rate, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base = strings.ToUpper(base)
	url := strings.TrimRight(baseURL, "/") + "/" + base

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates api returned %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("rates api body: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return nil, fmt.Errorf("rates api result %q", body.Result)
	}

	out := make([]Rate, 0, len(wanted))
	for _, code := range wanted {
		code = strings.ToUpper(code)
		v, found := body.Rates[code]
		if !found || v <= 0 {
			return nil, fmt.Errorf("rates api has no %s rate", code)
		}
		out = append(out, Rate{From: base, To: code, Rate: decimal.NewFromFloat(v)})
	}
	return out, nil
}
