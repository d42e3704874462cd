package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/contract-analyzer/constants"
	"github.com/joseph-ayodele/contract-analyzer/internal/entity"
	"github.com/joseph-ayodele/contract-analyzer/internal/locale"
	"github.com/joseph-ayodele/contract-analyzer/internal/quality"
)

const (
	maxAboutChars   = 300
	maxBulletChars  = 120
	maxSectionItems = 5
)

// FormatInput is everything the formatter reads. Preparation and Analysis may
// be fallback objects; nil is treated as empty.
type FormatInput struct {
	Run          *entity.AnalysisRun
	Preparation  *entity.PreparationResult
	Analysis     *entity.AnalysisResult
	Verdict      constants.Verdict
	QualityScore float64
	Tier         constants.ConfidenceTier
}

type Formatter struct {
	Catalog *locale.Catalog
	Now     func() time.Time
}

func NewFormatter(cat *locale.Catalog) *Formatter {
	if cat == nil {
		cat = locale.Default()
	}
	return &Formatter{Catalog: cat, Now: func() time.Time { return time.Now().UTC() }}
}

// Format builds the client-facing output document.
func (f *Formatter) Format(in FormatInput) *entity.FormattedOutput {
	prep := in.Preparation
	if prep == nil {
		prep = &entity.PreparationResult{}
		prep.Normalize()
	}
	an := in.Analysis
	if an == nil {
		an = &entity.AnalysisResult{}
		an.Normalize()
	}
	lang, role, numFiles := constants.LangEnglish, "", 1
	if in.Run != nil {
		if in.Run.OutputLanguage != "" {
			lang = in.Run.OutputLanguage
		}
		role = in.Run.UserRole
		numFiles += len(in.Run.AvailableDocuments)
	}

	out := &entity.FormattedOutput{
		Language:        lang,
		Verdict:         in.Verdict,
		VerdictText:     f.Catalog.Verdict(lang, in.Verdict),
		ImportantLimits: f.Catalog.Limits(lang),
		Confidence: entity.ConfidenceSection{
			Level:       in.Tier,
			Label:       f.Catalog.Tier(lang, in.Tier),
			Explanation: quality.BuildConfidenceExplanation(in.Tier, prep.QualityReason, prep.CoverageScore, numFiles),
		},
		About:       aboutSection(an.Summary, prep, role),
		Payment:     paymentBullets(an.PaymentTerms),
		Obligations: obligationBullets(an.Obligations),
		CheckTerms:  topRisks(an.Risks),
		TotalRisks:  len(an.Risks),
		AlsoThink:   top(an.GapsAnomalies),
		SignAsIs:    top(an.Mitigations),
		ActNow:      topCalendar(an.Calendar),
		KeyTerms: entity.KeyTerms{
			Parties:      prep.Parties,
			TermStart:    prep.TermStart,
			TermEnd:      prep.TermEnd,
			Jurisdiction: keyJurisdiction(prep),
		},
		Degraded:    prep.Degraded() || an.Degraded(),
		GeneratedAt: f.Now(),
	}
	if prep.Negotiability != constants.NegotiabilityLow {
		out.ShowAskChanges = true
		out.AskChanges = top(an.Suggestions)
	}
	if out.KeyTerms.Parties == nil {
		out.KeyTerms.Parties = []entity.Party{}
	}
	return out
}

func aboutSection(summary string, prep *entity.PreparationResult, role string) string {
	if s := strings.TrimSpace(summary); s != "" {
		return clip(s, maxAboutChars)
	}

	var b strings.Builder
	agreement := "an agreement"
	if t := prep.AgreementType; t != "" && t != "unknown" {
		agreement = "a " + t
	}
	b.WriteString("This is " + agreement)
	if len(prep.Parties) >= 2 {
		fmt.Fprintf(&b, " between %s and %s", partyName(prep.Parties[0]), partyName(prep.Parties[1]))
	} else {
		b.WriteString(" between the parties")
	}
	b.WriteString(". ")
	if role != "" {
		b.WriteString("You are the " + role + ". ")
	}
	if prep.TermStart != "" && prep.TermEnd != "" {
		fmt.Fprintf(&b, "The agreement runs from %s to %s.", prep.TermStart, prep.TermEnd)
	}
	return clip(strings.TrimSpace(b.String()), maxAboutChars)
}

func partyName(p entity.Party) string {
	if p.Name != "" {
		return p.Name
	}
	if p.Role != "" {
		return p.Role
	}
	return "a party"
}

func paymentBullets(p entity.PaymentTerms) []string {
	bullets := []string{}
	add := func(prefix, v string) {
		if v = strings.TrimSpace(v); v != "" {
			bullets = append(bullets, clip(prefix+v, maxBulletChars))
		}
	}
	amount := p.MainAmount
	if amount != "" && p.Currency != "" && !strings.Contains(amount, p.Currency) {
		amount += " " + p.Currency
	}
	add("Amount: ", amount)
	add("Deposit: ", p.DepositUpfront)
	add("First due: ", p.FirstDueDate)
	add("Frequency: ", p.DueFrequency)
	add("Term: ", p.EndDateRenewal)
	add("To cancel: ", p.CancellationNotice)

	taxes := strings.TrimSpace(p.TaxesFeesNote)
	if taxes == "" {
		taxes = "Taxes/fees not analyzed."
	}
	bullets = append(bullets, clip(taxes, maxBulletChars))
	if len(bullets) > maxSectionItems {
		bullets = bullets[:maxSectionItems]
	}
	return bullets
}

func obligationBullets(obs []entity.Obligation) []string {
	out := []string{}
	for _, o := range obs {
		if len(out) == maxSectionItems {
			break
		}
		action := strings.TrimSpace(o.Action)
		if action == "" {
			continue
		}
		if tw := strings.TrimSpace(o.TimeWindow); tw != "" {
			action = fmt.Sprintf("%s (%s)", action, tw)
		}
		out = append(out, clip(action, maxBulletChars))
	}
	return out
}

var severityRank = map[string]int{
	entity.SeverityHigh:   0,
	entity.SeverityMedium: 1,
	entity.SeverityLow:    2,
}

func topRisks(risks []entity.Risk) []entity.TermCheck {
	sorted := make([]entity.Risk, len(risks))
	copy(sorted, risks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return severityRank[sorted[i].Severity] < severityRank[sorted[j].Severity]
	})
	out := []entity.TermCheck{}
	for _, r := range sorted {
		if len(out) == maxSectionItems {
			break
		}
		out = append(out, entity.TermCheck{
			Description:    r.Description,
			Severity:       r.Severity,
			Recommendation: r.Recommendation,
		})
	}
	return out
}

func top(items []string) []string {
	out := []string{}
	for _, s := range items {
		if len(out) == maxSectionItems {
			break
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func topCalendar(items []entity.CalendarItem) []entity.CalendarItem {
	out := []entity.CalendarItem{}
	for _, c := range items {
		if len(out) == maxSectionItems {
			break
		}
		if c.Event == "" && c.DateOrFormula == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func keyJurisdiction(p *entity.PreparationResult) string {
	if p.DetectedJurisdiction != "" {
		return p.DetectedJurisdiction
	}
	return p.Jurisdiction
}

// RenderMarkdown prints a formatted output as a plain-text report in its own language.
func RenderMarkdown(out *entity.FormattedOutput, cat *locale.Catalog) string {
	if cat == nil {
		cat = locale.Default()
	}
	lang := out.Language
	var b strings.Builder
	heading := func(key string) {
		fmt.Fprintf(&b, "\n## %s\n\n", cat.Section(lang, key))
	}
	list := func(items []string) {
		for _, s := range items {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	fmt.Fprintf(&b, "# %s\n", cat.Section(lang, "summary_title"))
	heading("our_quick_take")
	b.WriteString(out.VerdictText + "\n")
	heading("confidence_title")
	fmt.Fprintf(&b, "%s. %s\n", out.Confidence.Label, out.Confidence.Explanation)

	about := out.About
	if out.Simplified != nil && out.Simplified.About != "" {
		about = out.Simplified.About
	}
	heading("about_contract")
	b.WriteString(about + "\n")

	heading("payment_title")
	list(out.Payment)

	if len(out.Obligations) > 0 {
		heading("obligations_title")
		list(out.Obligations)
	}
	if len(out.CheckTerms) > 0 {
		heading("check_terms")
		for _, t := range out.CheckTerms {
			fmt.Fprintf(&b, "- [%s] %s", t.Severity, t.Description)
			if t.Recommendation != "" {
				fmt.Fprintf(&b, " → %s", t.Recommendation)
			}
			b.WriteString("\n")
		}
	}
	if len(out.AlsoThink) > 0 {
		heading("also_think")
		list(out.AlsoThink)
	}
	if out.ShowAskChanges && len(out.AskChanges) > 0 {
		heading("ask_changes")
		list(out.AskChanges)
	}
	if len(out.SignAsIs) > 0 {
		heading("sign_as_is")
		list(out.SignAsIs)
	}
	if len(out.ActNow) > 0 {
		heading("act_now")
		for _, c := range out.ActNow {
			fmt.Fprintf(&b, "- %s: %s\n", c.DateOrFormula, c.Event)
		}
	}

	heading("important_limits_title")
	b.WriteString(out.ImportantLimits + "\n")
	return b.String()
}
