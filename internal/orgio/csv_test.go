package orgio_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trytheo/outreach/internal/orgio"
	"github.com/trytheo/outreach/internal/outreach"
)

func readOrgs(t *testing.T, input string) ([]outreach.Organization, []string) {
	t.Helper()
	orgs, header, err := orgio.ReadOrganizations(strings.NewReader(input), outreach.NewValidator(80))
	require.NoError(t, err)
	return orgs, header
}

func TestReadOrganizations_ArbitraryColumnsBecomeFields(t *testing.T) {
	orgs, header, err := orgio.ReadOrganizations(strings.NewReader(
		"Organization name,Tuition,Notes\n"+
			"Lincoln Academy,\"$12,000\",STEM focus\n"+
			"Riverside Prep,,\n"),
		outreach.NewValidator(80))
	require.NoError(t, err)

	assert.Equal(t, []string{"Organization name", "Tuition", "Notes"}, header)
	require.Len(t, orgs, 2)

	assert.Equal(t, "Lincoln Academy", orgs[0].Name)
	assert.Equal(t, []outreach.Field{
		{Key: "Organization name", Value: "Lincoln Academy"},
		{Key: "Tuition", Value: "$12,000"},
		{Key: "Notes", Value: "STEM focus"},
	}, orgs[0].Fields)

	// Empty cells are dropped, not stored as empty fields.
	assert.Equal(t, []outreach.Field{{Key: "Organization name", Value: "Riverside Prep"}}, orgs[1].Fields)
}

func TestReadOrganizations_NameColumnPriority(t *testing.T) {
	orgs, _ := readOrgs(t, "Name,School name\nFallback,Hillcrest High\n")
	require.Len(t, orgs, 1)
	// "School name" outranks "Name".
	assert.Equal(t, "Hillcrest High", orgs[0].Name)
}

func TestReadOrganizations_MissingNameGetsPlaceholder(t *testing.T) {
	orgs, _ := readOrgs(t, "City,State\nSpringfield,IL\nShelbyville,IL\n")
	require.Len(t, orgs, 2)
	assert.Equal(t, "Organization 1", orgs[0].Name)
	assert.Equal(t, "Organization 2", orgs[1].Name)
}

func TestReadOrganizations_SuppliedContacts(t *testing.T) {
	orgs, _ := readOrgs(t,
		"Organization name,Contact 1 Name,Contact 1 Email,Contact 1 Title,Contact 2 Email,Contact 2 Bio\n"+
			"Lincoln Academy,Jane Doe,jdoe@lincolnacademy.edu,Principal,dean@lincolnacademy.edu,Listed on the staff page\n")
	require.Len(t, orgs, 1)
	org := orgs[0]

	// Contact columns never leak into the prompt fields.
	assert.Equal(t, []outreach.Field{{Key: "Organization name", Value: "Lincoln Academy"}}, org.Fields)

	require.Len(t, org.Contacts, 2)
	first := org.Contacts[0]
	assert.Equal(t, "Jane Doe", first.Name)
	assert.Equal(t, "jdoe@lincolnacademy.edu", first.Email)
	assert.Equal(t, "Principal", first.Title)
	assert.Equal(t, outreach.ContactSourceSupplied, first.Source)
	assert.False(t, first.Flagged)

	second := org.Contacts[1]
	assert.Empty(t, second.Name)
	assert.Equal(t, "Listed on the staff page", second.SourceText)
	assert.Equal(t, outreach.ContactSourceSupplied, second.Source)
}

func TestReadOrganizations_InvalidSuppliedContactDropped(t *testing.T) {
	orgs, _ := readOrgs(t,
		"Organization name,Contact 1 Email,Contact 2 Email\n"+
			"Lincoln Academy,not-an-email,jdoe@lincolnacademy.edu\n")
	require.Len(t, orgs, 1)
	require.Len(t, orgs[0].Contacts, 1)
	assert.Equal(t, "jdoe@lincolnacademy.edu", orgs[0].Contacts[0].Email)
}

func TestReadOrganizations_ContactHeadersCaseInsensitive(t *testing.T) {
	orgs, _ := readOrgs(t,
		"Organization name,CONTACT 1 EMAIL\n"+
			"Lincoln Academy,jdoe@lincolnacademy.edu\n")
	require.Len(t, orgs, 1)
	require.Len(t, orgs[0].Contacts, 1)
}

func TestReadOrganizations_RaggedRows(t *testing.T) {
	orgs, _ := readOrgs(t, "Organization name,Tuition\nLincoln Academy\n")
	require.Len(t, orgs, 1)
	assert.Equal(t, "Lincoln Academy", orgs[0].Name)
}

func TestReadOrganizations_EmptyInput(t *testing.T) {
	_, _, err := orgio.ReadOrganizations(strings.NewReader(""), outreach.NewValidator(80))
	assert.Error(t, err)
}

func TestWriteExport(t *testing.T) {
	rows := []outreach.ExportRow{{
		RecipientEmail:    "jdoe@lincolnacademy.edu",
		RecipientName:     "Jane Doe",
		OrganizationName:  "Lincoln Academy",
		Subject:           "Quick question",
		Body:              "Dear Jane,\nline two",
		ConfidenceScore:   93,
		Flags:             "NEEDS_REVIEW",
		ContactTitle:      "Principal",
		ContactConfidence: 95,
		EmailQuality:      92,
		Attempts:          2,
	}}

	var buf bytes.Buffer
	require.NoError(t, orgio.WriteExport(&buf, rows))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, outreach.ExportHeader(), recs[0])
	assert.Equal(t, []string{
		"jdoe@lincolnacademy.edu", "Jane Doe", "Lincoln Academy",
		"Quick question", "Dear Jane,\nline two",
		"93", "NEEDS_REVIEW", "Principal", "95", "92", "2",
	}, recs[1])
}
