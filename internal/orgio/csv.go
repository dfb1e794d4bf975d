// Package orgio reads organization records from CSV and writes the export
// spreadsheet.
package orgio

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/trytheo/outreach/internal/outreach"
)

// Column names accepted as the organization name, in priority order.
var nameColumns = []string{"Organization name", "School name", "Name"}

// Up to five supplied-contact column groups: "Contact i Name/Email/Title/Bio".
const maxSuppliedContacts = 5

var suppliedContactRe = regexp.MustCompile(`(?i)^contact\s+([1-5])\s+(name|email|title|bio)$`)

// ReadOrganizations parses the uploaded CSV into organization records.
// Arbitrary columns become ordered fields; supplied-contact columns are
// split out, validated and attached so the researcher is skipped for those
// organizations. Invalid supplied contacts are dropped silently.
func ReadOrganizations(r io.Reader, validator *outreach.Validator) ([]outreach.Organization, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	nameIdx := -1
	for _, want := range nameColumns {
		for i, col := range header {
			if strings.EqualFold(col, want) {
				nameIdx = i
				break
			}
		}
		if nameIdx >= 0 {
			break
		}
	}

	type contactCol struct {
		slot  int // 0-based
		field string
	}
	contactCols := map[int]contactCol{}
	for i, col := range header {
		if m := suppliedContactRe.FindStringSubmatch(col); m != nil {
			slot, _ := strconv.Atoi(m[1])
			contactCols[i] = contactCol{slot: slot - 1, field: strings.ToLower(m[2])}
		}
	}

	var orgs []outreach.Organization
	rowNum := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rowNum++

		org := outreach.Organization{}
		supplied := make([]outreach.Contact, maxSuppliedContacts)

		for i, value := range rec {
			if i >= len(header) {
				break
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if cc, ok := contactCols[i]; ok {
				switch cc.field {
				case "name":
					supplied[cc.slot].Name = value
				case "email":
					supplied[cc.slot].Email = value
				case "title":
					supplied[cc.slot].Title = value
				case "bio":
					supplied[cc.slot].SourceText = value
				}
				continue
			}
			org.Fields = append(org.Fields, outreach.Field{Key: header[i], Value: value})
			if i == nameIdx {
				org.Name = value
			}
		}

		if org.Name == "" {
			org.Name = fmt.Sprintf("Organization %d", rowNum)
		}

		for _, c := range supplied {
			if c.Email == "" {
				continue
			}
			c.Source = outreach.ContactSourceSupplied
			vc, ok := validator.Validate(c, org.Name)
			if !ok {
				continue
			}
			org.Contacts = append(org.Contacts, vc)
		}

		orgs = append(orgs, org)
	}

	return orgs, header, nil
}

// WriteExport writes rows as a CSV with the stable ExportHeader ordering.
func WriteExport(w io.Writer, rows []outreach.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(outreach.ExportHeader()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.RecipientEmail,
			r.RecipientName,
			r.OrganizationName,
			r.Subject,
			r.Body,
			strconv.Itoa(r.ConfidenceScore),
			r.Flags,
			r.ContactTitle,
			strconv.Itoa(r.ContactConfidence),
			strconv.Itoa(r.EmailQuality),
			strconv.Itoa(r.Attempts),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
