package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func testStudent(gender string) *models.StudentDetails {
	student := &models.StudentDetails{
		FirstName:       "Priya",
		LastName:        "Raman",
		BatchName:       strPtr("2023-2027"),
		DepartmentName:  strPtr("Computer Science"),
		CurrentSemester: 4,
	}
	student.RegisterNumber = "CS2023001"
	student.ParentName = "Raman"
	student.Gender = gender
	return student
}

func testRequest() *models.Request {
	return &models.Request{
		ID:     "req-1",
		Type:   "Bank Loan",
		Reason: "Education loan application",
	}
}

func htmlTemplate(content string) *models.CertificateTemplate {
	return &models.CertificateTemplate{
		ID:           "tmpl-1",
		TemplateType: models.TemplateTypeHTML,
		Content:      &content,
	}
}

func TestRenderFemaleGrammar(t *testing.T) {
	r := NewRenderer()
	tmpl := htmlTemplate("This is to certify that Mr/Ms {studentName}, S/o or D/o {parentName}, is a bonafide student. He/She is in semester {currentSemester} and his/her conduct is good.")

	out, err := r.Render(testRequest(), testStudent("Female"), tmpl, false)
	require.NoError(t, err)
	assert.Contains(t, out, "Ms. Priya Raman")
	assert.Contains(t, out, "D/o Raman")
	assert.Contains(t, out, "She is in semester 4")
	assert.Contains(t, out, "her conduct is good")
	assert.NotContains(t, out, "Mr/Ms")
	assert.NotContains(t, out, "S/o or D/o")
}

func TestRenderMaleGrammar(t *testing.T) {
	r := NewRenderer()
	tmpl := htmlTemplate("{salutation} {studentName}, {parentRelation} {parentName}. {heShe} studies here and {hisHer} record is clean.")

	out, err := r.Render(testRequest(), testStudent("Male"), tmpl, false)
	require.NoError(t, err)
	assert.Contains(t, out, "Mr. Priya Raman")
	assert.Contains(t, out, "S/o Raman")
	assert.Contains(t, out, "He studies here")
	assert.Contains(t, out, "his record is clean")
}

// The standalone-word rules must not re-match text produced by the combined
// forms: "He/She" resolves to "She" for a female student, and the later
// standalone-He pass has to leave that "She" alone.
func TestRenderOrderingDoesNotReMatch(t *testing.T) {
	r := NewRenderer()
	tmpl := htmlTemplate("He/She is enrolled. He attends regularly and his attendance is recorded in History class.")

	out, err := r.Render(testRequest(), testStudent("Female"), tmpl, false)
	require.NoError(t, err)
	assert.Contains(t, out, "She is enrolled")
	assert.Contains(t, out, "She attends regularly")
	assert.Contains(t, out, "her attendance")
	// \b boundaries keep longer words intact.
	assert.Contains(t, out, "History class")
}

func TestRenderReasonAliasCarriesType(t *testing.T) {
	r := NewRenderer()
	tmpl := htmlTemplate("Certificate issued for {reason}. Details: {detailedReason}.")

	out, err := r.Render(testRequest(), testStudent("Male"), tmpl, false)
	require.NoError(t, err)
	assert.Contains(t, out, "issued for Bank Loan")
	assert.Contains(t, out, "Details: Education loan application")
}

func TestRenderMissingFieldsFallBackToNA(t *testing.T) {
	r := NewRenderer()
	student := testStudent("Male")
	student.ParentName = ""
	student.DepartmentName = nil
	student.BatchName = nil
	student.CurrentSemester = 0
	tmpl := htmlTemplate("{parentName} | {department} | {batch} | {currentSemester}")

	out, err := r.Render(testRequest(), student, tmpl, false)
	require.NoError(t, err)
	assert.Equal(t, "N/A | N/A | N/A | N/A", out)
}

func TestRenderDateFormat(t *testing.T) {
	r := NewRenderer(WithClock(func() time.Time {
		return time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)
	}))
	tmpl := htmlTemplate("Issued on {date}")

	out, err := r.Render(testRequest(), testStudent("Male"), tmpl, false)
	require.NoError(t, err)
	assert.Equal(t, "Issued on 09/03/2025", out)
}

func TestRenderSignatureLine(t *testing.T) {
	r := NewRenderer()
	tmpl := htmlTemplate("Body text")

	out, err := r.Render(testRequest(), testStudent("Male"), tmpl, true)
	require.NoError(t, err)
	assert.Equal(t, "Body text\n\n"+DefaultSignatureLine, out)

	custom := NewRenderer(WithSignatureLine("Signed by the Registrar."))
	out, err = custom.Render(testRequest(), testStudent("Male"), tmpl, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed by the Registrar.")
}

func TestRenderIsIdempotentOnOutput(t *testing.T) {
	r := NewRenderer()
	tmpl := htmlTemplate("Mr/Ms {studentName}, S/o or D/o {parentName}. He/She is enrolled.")

	first, err := r.Render(testRequest(), testStudent("Female"), tmpl, false)
	require.NoError(t, err)

	second, err := r.Render(testRequest(), testStudent("Female"), htmlTemplate(first), false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderRejectsMissingInputs(t *testing.T) {
	r := NewRenderer()
	tmpl := htmlTemplate("Body")

	_, err := r.Render(testRequest(), testStudent("Male"), nil, false)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingTemplate))

	_, err = r.Render(testRequest(), nil, tmpl, false)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingStudent))

	_, err = r.Render(nil, testStudent("Male"), tmpl, false)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRenderRejectsNonHTMLTemplates(t *testing.T) {
	r := NewRenderer()
	tmpl := &models.CertificateTemplate{
		TemplateType: models.TemplateTypePDF,
		FileURL:      strPtr("https://files.example/cert.pdf"),
	}

	_, err := r.Render(testRequest(), testStudent("Male"), tmpl, false)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRenderRejectsEmptyContent(t *testing.T) {
	r := NewRenderer()
	tmpl := &models.CertificateTemplate{TemplateType: models.TemplateTypeHTML}

	_, err := r.Render(testRequest(), testStudent("Male"), tmpl, false)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingTemplate))
}
