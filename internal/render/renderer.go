// Package render turns an html-type certificate template plus a student's
// data into the final certificate text.
//
// Templates are authored two ways at once: as readable English prose with
// natural gender markers ("Mr/Ms", "S/o or D/o", "He/She") so a human
// proofreading the template sees valid sentences, and with explicit machine
// placeholders ("{salutation}", "{heShe}") for precision. Both are supported
// by a single pipeline of substitution rules applied in a fixed order, so a
// later rule never re-matches text inserted by an earlier one.
package render

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

// DefaultSignatureLine is appended when the caller asks for a signature
// block and no custom line is configured.
const DefaultSignatureLine = "This certificate is electronically signed by the Principal."

const notAvailable = "N/A"

var (
	standaloneHe  = regexp.MustCompile(`\bHe\b`)
	standaloneHis = regexp.MustCompile(`\bhis\b`)
)

// grammarProfile holds the gender-dependent substitution values.
type grammarProfile struct {
	salutation     string
	parentRelation string
	heShe          string
	hisHer         string
}

func profileFor(gender string) grammarProfile {
	if gender == "Female" {
		return grammarProfile{salutation: "Ms.", parentRelation: "D/o", heShe: "She", hisHer: "her"}
	}
	return grammarProfile{salutation: "Mr.", parentRelation: "S/o", heShe: "He", hisHer: "his"}
}

// Renderer produces certificate text from html-type templates.
type Renderer struct {
	now           func() time.Time
	signatureLine string
}

// Option configures the renderer.
type Option func(*Renderer)

// WithClock pins the {date} placeholder for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSignatureLine overrides the trailing e-signature line.
func WithSignatureLine(line string) Option {
	return func(r *Renderer) {
		if line != "" {
			r.signatureLine = line
		}
	}
}

// NewRenderer constructs a renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{now: time.Now, signatureLine: DefaultSignatureLine}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Render substitutes the template's placeholders with the request and
// student data. Only html-type templates render; callers serve pdf/word
// templates from their stored file instead of calling here.
func (r *Renderer) Render(req *models.Request, student *models.StudentDetails, tmpl *models.CertificateTemplate, includeSignature bool) (string, error) {
	if tmpl == nil {
		return "", appErrors.ErrMissingTemplate
	}
	if student == nil {
		return "", appErrors.ErrMissingStudent
	}
	if req == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "request is required for rendering")
	}
	if !tmpl.Renderable() {
		return "", appErrors.Clone(appErrors.ErrValidation, "template is not text-renderable")
	}
	if tmpl.Content == nil {
		return "", appErrors.Clone(appErrors.ErrMissingTemplate, "template has no content body")
	}

	grammar := profileFor(student.Gender)
	text := *tmpl.Content

	// Pass 1: content placeholders, every occurrence, literal token names.
	for _, rule := range r.contentRules(req, student) {
		text = strings.ReplaceAll(text, rule.token, rule.value)
	}

	// Pass 2: bare grammar markers in prose. Order matters: the combined
	// forms go first so the standalone-word rules never split them up.
	text = strings.ReplaceAll(text, "Mr/Ms", grammar.salutation)
	text = strings.ReplaceAll(text, "S/o or D/o", grammar.parentRelation)
	text = strings.ReplaceAll(text, "He/She", grammar.heShe)
	text = strings.ReplaceAll(text, "his/her", grammar.hisHer)
	text = standaloneHe.ReplaceAllString(text, grammar.heShe)
	text = standaloneHis.ReplaceAllString(text, grammar.hisHer)

	// Pass 3: explicit grammar placeholders.
	text = strings.ReplaceAll(text, "{salutation}", grammar.salutation)
	text = strings.ReplaceAll(text, "{parentRelation}", grammar.parentRelation)
	text = strings.ReplaceAll(text, "{heShe}", grammar.heShe)
	text = strings.ReplaceAll(text, "{hisHer}", grammar.hisHer)

	if includeSignature {
		text = text + "\n\n" + r.signatureLine
	}
	return text, nil
}

type contentRule struct {
	token string
	value string
}

func (r *Renderer) contentRules(req *models.Request, student *models.StudentDetails) []contentRule {
	return []contentRule{
		{"{studentName}", student.FullName()},
		{"{studentId}", student.RegisterNumber},
		{"{purpose}", req.Type},
		{"{subPurpose}", deref(req.SubType, "")},
		// {reason} historically carried the request type, not the free-text
		// reason; templates in the field rely on the alias.
		{"{reason}", req.Type},
		{"{detailedReason}", req.Reason},
		{"{parentName}", orNA(student.ParentName)},
		{"{department}", orNA(deref(student.DepartmentName, ""))},
		{"{batch}", orNA(deref(student.BatchName, ""))},
		{"{currentSemester}", semesterText(student.CurrentSemester)},
		{"{date}", r.now().Format("02/01/2006")},
	}
}

func semesterText(semester int) string {
	if semester <= 0 {
		return notAvailable
	}
	return strconv.Itoa(semester)
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return notAvailable
	}
	return value
}

func deref(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
