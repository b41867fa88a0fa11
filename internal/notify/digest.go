package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/labtrack/internal/model"
)

// Caps on visible lines per digest section.
const (
	maxOrderLines    = 8
	maxLowStockLines = 6
)

// DigestSource provides the read-only aggregates and the pending queue.
type DigestSource interface {
	OpenOrders(ctx context.Context) ([]model.Order, error)
	OverdueCheckouts(ctx context.Context, day time.Time) ([]model.Checkout, error)
	LowStock(ctx context.Context) ([]model.Item, error)
	ActivityOn(ctx context.Context, day time.Time) (model.Activity, error)
	PendingNotifications(ctx context.Context) ([]model.PendingNotification, error)
	ClearPendingNotifications(ctx context.Context, n int) error
}

// CompileDigest builds the digest message. It also returns how many queued
// notifications the message summarises.
func (r *Router) CompileDigest(ctx context.Context) (Message, int, error) {
	now := r.now()

	orders, err := r.backend.OpenOrders(ctx)
	if err != nil {
		return Message{}, 0, fmt.Errorf("reading open orders: %w", err)
	}
	overdue, err := r.backend.OverdueCheckouts(ctx, now)
	if err != nil {
		return Message{}, 0, fmt.Errorf("reading overdue checkouts: %w", err)
	}
	low, err := r.backend.LowStock(ctx)
	if err != nil {
		return Message{}, 0, fmt.Errorf("reading low stock: %w", err)
	}
	activity, err := r.backend.ActivityOn(ctx, now)
	if err != nil {
		return Message{}, 0, fmt.Errorf("reading activity: %w", err)
	}
	pending, err := r.backend.PendingNotifications(ctx)
	if err != nil {
		return Message{}, 0, fmt.Errorf("reading pending notifications: %w", err)
	}

	var urgent, normal []model.Order
	for _, o := range orders {
		if o.Urgent() {
			urgent = append(urgent, o)
		} else {
			normal = append(normal, o)
		}
	}

	var sections []string
	if len(urgent) > 0 {
		sections = append(sections, section(fmt.Sprintf("🔥 *Urgent orders (%d)*", len(urgent)), orderLines(urgent), 0))
	}
	if len(normal) > 0 {
		sections = append(sections, section(fmt.Sprintf("🛒 *Open orders (%d)*", len(normal)), orderLines(normal), maxOrderLines))
	}
	if len(overdue) > 0 {
		sections = append(sections, section(fmt.Sprintf("⏰ *Overdue checkouts (%d)*", len(overdue)), overdueLines(overdue), 0))
	}
	if len(low) > 0 {
		sections = append(sections, section(fmt.Sprintf("⚠️ *Low stock (%d)*", len(low)), lowStockLines(low), maxLowStockLines))
	}
	if spend, ok := estimatedSpend(orders); ok {
		sections = append(sections, "💰 *Estimated open spend:* "+spend.StringFixed(2))
	}

	body := strings.Join(sections, "\n\n")
	if len(sections) == 0 && len(pending) == 0 {
		body = "✅ All clear"
	}

	fields := []string{
		fmt.Sprintf("*Today*\n%d deliveries · %d checkouts · %d orders", activity.Deliveries, activity.Checkouts, activity.Orders),
	}
	if len(pending) > 0 {
		fields = append(fields, "*Queued updates*\n"+pendingSummary(pending))
	}

	msg := Message{
		Icon:   "📊",
		Title:  "LabTrack Daily Digest: " + now.Format("Mon, Jan 2"),
		Body:   body,
		Fields: fields,
		Time:   now,
	}
	return msg, len(pending), nil
}

// SendDigest compiles and delivers one digest, then clears the queued
// notifications it summarised. The queue is only cleared after the send
// succeeds; a failed send is logged and leaves the queue for next time.
// Concurrent calls run one after another.
func (r *Router) SendDigest(ctx context.Context) error {
	r.digestMu.Lock()
	defer r.digestMu.Unlock()

	msg, n, err := r.CompileDigest(ctx)
	if err != nil {
		return err
	}
	r.metrics.Digest()

	if !deliver(r.sender, msg, r.metrics) {
		return nil
	}
	if n == 0 {
		return nil
	}
	if err := r.backend.ClearPendingNotifications(ctx, n); err != nil {
		return fmt.Errorf("clearing pending notifications: %w", err)
	}
	slog.Info("digest sent", "summarised", n)
	return nil
}

// OverdueEvent builds the morning alert for overdue checkouts.
func OverdueEvent(checkouts []model.Checkout) Event {
	return Event{
		Kind:  KindOverdue,
		Icon:  "⏰",
		Title: fmt.Sprintf("Overdue Checkouts (%d)", len(checkouts)),
		Body:  strings.Join(overdueLines(checkouts), "\n"),
	}
}

// section renders a heading and bullet lines. A positive limit caps the
// visible lines and appends a "+N more" line.
func section(heading string, lines []string, limit int) string {
	var b strings.Builder
	b.WriteString(heading)
	for i, l := range lines {
		if limit > 0 && i == limit {
			fmt.Fprintf(&b, "\n+%d more", len(lines)-limit)
			break
		}
		b.WriteString("\n• ")
		b.WriteString(l)
	}
	return b.String()
}

func orderLines(orders []model.Order) []string {
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		line := o.Item
		if q := quantity(o.Quantity, o.Unit); q != "" {
			line += " × " + q
		}
		if o.RequestedBy != "" {
			line += " (" + o.RequestedBy + ")"
		}
		line += " · " + o.Status
		lines = append(lines, line)
	}
	return lines
}

func overdueLines(checkouts []model.Checkout) []string {
	lines := make([]string, 0, len(checkouts))
	for _, c := range checkouts {
		lines = append(lines, fmt.Sprintf("%s: %s, due %s", c.Item, c.User, c.Ret))
	}
	return lines
}

func lowStockLines(items []model.Item) []string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s: %s left (min %s)",
			it.Name, quantity(it.Quantity, it.Unit), formatNumber(*it.MinQuantity)))
	}
	return lines
}

// pendingSummary counts queued entries per icon in first-seen order.
func pendingSummary(pending []model.PendingNotification) string {
	counts := make(map[string]int)
	var order []string
	for _, p := range pending {
		icon := p.Icon
		if icon == "" {
			icon = "•"
		}
		if counts[icon] == 0 {
			order = append(order, icon)
		}
		counts[icon]++
	}
	parts := make([]string, 0, len(order))
	for _, icon := range order {
		parts = append(parts, fmt.Sprintf("%s %d", icon, counts[icon]))
	}
	return strings.Join(parts, " · ")
}

// estimatedSpend sums the prices of open orders that parse as amounts.
func estimatedSpend(orders []model.Order) (decimal.Decimal, bool) {
	total := decimal.Zero
	found := false
	for _, o := range orders {
		price, ok := parsePrice(o.Price)
		if !ok {
			continue
		}
		total = total.Add(price)
		found = true
	}
	return total, found
}

func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer("$", "", "€", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func quantity(q *float64, unit string) string {
	if q == nil {
		return ""
	}
	return strings.TrimSpace(formatNumber(*q) + " " + unit)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
