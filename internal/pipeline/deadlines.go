package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
)

const maxDeadlineTitle = 200

// Deadline source sections.
const (
	SourceCalendar     = "calendar"
	SourceObligations  = "obligations"
	SourcePaymentTerms = "payment_terms"
)

var deadlineKeywords = []struct {
	kind entity.DeadlineType
	re   *regexp.Regexp
}{
	{entity.DeadlinePayment, regexp.MustCompile(`(?i)\b(pay|payment|payments|rent|fee|fees|invoice)\b`)},
	{entity.DeadlineRenewal, regexp.MustCompile(`(?i)\b(renew|renewal|renews|extend|extension)\b`)},
	{entity.DeadlineNotice, regexp.MustCompile(`(?i)\b(notice|notify|inform)\b`)},
	{entity.DeadlineTermination, regexp.MustCompile(`(?i)\b(terminate|termination|cancel|cancellation|end|ends)\b`)},
	{entity.DeadlineOptionExercise, regexp.MustCompile(`(?i)\b(option|choose|elect)\b`)},
}

var reRecurring = regexp.MustCompile(`(?i)\b(monthly|weekly|yearly|annually|quarterly|daily)\b`)

// Time windows that carry no date.
var undatedWindows = map[string]struct{}{
	"":           {},
	"ongoing":    {},
	"not stated": {},
	"none":       {},
	"n/a":        {},
}

// ExtractDeadlines turns calendar items, dated obligations and payment terms
// into deadlines. Entries that parse as a date get Date; the rest keep the
// original wording in DateFormula.
func ExtractDeadlines(run *entity.AnalysisRun, an *entity.AnalysisResult) []entity.Deadline {
	if run == nil || an == nil {
		return nil
	}
	now := time.Now().UTC()
	var out []entity.Deadline
	add := func(kind entity.DeadlineType, title, description, when, source string, recurring bool) {
		d := entity.Deadline{
			ID:            uuid.New(),
			RunID:         run.ID,
			DocumentID:    run.DocumentID,
			Type:          kind,
			Title:         TruncateRunes(strings.TrimSpace(title), maxDeadlineTitle),
			Description:   strings.TrimSpace(description),
			IsRecurring:   recurring,
			SourceSection: source,
			CreatedAt:     now,
		}
		if t, ok := parseDeadlineDate(when); ok {
			d.Date = &t
		} else {
			d.DateFormula = strings.TrimSpace(when)
		}
		out = append(out, d)
	}

	for _, c := range an.Calendar {
		if strings.TrimSpace(c.Event) == "" {
			continue
		}
		kind := CategorizeDeadline(c.Event, SourceCalendar)
		recurring := reRecurring.MatchString(c.Event) || reRecurring.MatchString(c.DateOrFormula)
		add(kind, c.Event, "", c.DateOrFormula, SourceCalendar, recurring)
	}

	for _, o := range an.Obligations {
		tw := strings.TrimSpace(o.TimeWindow)
		if _, skip := undatedWindows[strings.ToLower(tw)]; skip || strings.TrimSpace(o.Action) == "" {
			continue
		}
		add(entity.DeadlineObligation, o.Action, o.Consequence, tw, SourceObligations, reRecurring.MatchString(tw))
	}

	p := an.PaymentTerms
	amount := strings.TrimSpace(p.MainAmount)
	if amount == "" {
		amount = "Payment"
	}
	if first := strings.TrimSpace(p.FirstDueDate); first != "" {
		if _, ok := parseDeadlineDate(first); ok {
			add(entity.DeadlinePayment, "First payment due: "+amount, "", first, SourcePaymentTerms, false)
		}
	}
	if freq := strings.TrimSpace(p.DueFrequency); freq != "" {
		switch strings.ToLower(freq) {
		case "one-time", "one time", "once", "none", "n/a":
		default:
			add(entity.DeadlinePayment, "Recurring payment: "+amount, "", freq, SourcePaymentTerms, true)
		}
	}
	return out
}

// CategorizeDeadline picks a deadline type from the event wording. Anything
// sourced from obligations is an obligation.
func CategorizeDeadline(event, source string) entity.DeadlineType {
	if source == SourceObligations {
		return entity.DeadlineObligation
	}
	for _, k := range deadlineKeywords {
		if k.re.MatchString(event) {
			return k.kind
		}
	}
	return entity.DeadlineOther
}

func parseDeadlineDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	// dateparse accepts bare numbers as timestamps; a contract "30" is a day count
	if !strings.ContainsAny(s, "-/., ") {
		return time.Time{}, false
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
