// Package export writes campaign leads to CSV or XLSX files for handoff to
// CRMs and outreach tools that do not take an API feed.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadgen/internal/config"
	"github.com/sells-group/leadgen/internal/model"
)

// leadColumns is the fixed output schema shared by both formats.
var leadColumns = []string{
	"name",
	"address",
	"city",
	"state",
	"postal_code",
	"country",
	"phone",
	"email",
	"website",
	"category",
	"rating",
	"reviews_count",
	"status",
	"email_valid",
	"phone_valid",
	"company_valid",
	"linkedin_enriched",
	"research_completed",
	"linkedin_url",
	"linkedin_confidence",
	"research_overview",
	"message_subject",
	"message_body",
	"message_personalized",
}

func leadRow(l model.Lead) []string {
	row := []string{
		l.Name,
		l.Address,
		l.City,
		l.State,
		l.PostalCode,
		l.Country,
		l.Phone,
		l.Email,
		l.Website,
		l.Category,
		formatFloat(l.Rating),
		strconv.Itoa(l.ReviewsCount),
		string(l.Status),
		string(l.EmailValid),
		string(l.PhoneValid),
		string(l.CompanyValid),
		strconv.FormatBool(l.LinkedInEnriched),
		strconv.FormatBool(l.ResearchCompleted),
		"", // linkedin_url
		"", // linkedin_confidence
		"", // research_overview
		"", // message_subject
		"", // message_body
		strconv.FormatBool(l.MessagePersonalized),
	}
	if p := l.LinkedInProfile; p != nil {
		row[18] = p.ProfileURL
		row[19] = formatFloat(p.Confidence)
	}
	if r := l.ResearchData; r != nil {
		row[20] = r.Overview
	}
	if m := l.PersonalizedMessage; m != nil {
		row[21] = m.Subject
		row[22] = m.Body
	}
	return row
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// WriteCSV streams leads as CSV, header first.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(leadColumns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range leads {
		if err := cw.Write(leadRow(leads[i])); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes leads to a single-sheet workbook at path.
func WriteXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range leadColumns {
		header.AddCell().SetString(col)
	}
	for i := range leads {
		row := sheet.AddRow()
		for _, v := range leadRow(leads[i]) {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// Exporter writes campaign exports into the configured directory.
type Exporter struct {
	cfg config.ExportConfig
}

// New creates an Exporter.
func New(cfg config.ExportConfig) *Exporter {
	return &Exporter{cfg: cfg}
}

// Export writes the campaign's leads in the requested format (falling back
// to the configured default) and returns the file path.
func (e *Exporter) Export(campaign *model.Campaign, leads []model.Lead, format string) (string, error) {
	if format == "" {
		format = e.cfg.Format
	}
	format = strings.ToLower(format)

	dir := e.cfg.Directory
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: create directory %s", dir)
	}

	path := filepath.Join(dir, exportFilename(campaign.Name, format))
	switch format {
	case "csv":
		f, err := os.Create(path)
		if err != nil {
			return "", eris.Wrapf(err, "export: create %s", path)
		}
		if err := WriteCSV(f, leads); err != nil {
			f.Close() //nolint:errcheck
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", eris.Wrapf(err, "export: close %s", path)
		}
		return path, nil
	case "xlsx":
		if err := WriteXLSX(path, leads); err != nil {
			return "", err
		}
		return path, nil
	default:
		return "", eris.Errorf("export: unsupported format %q", format)
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func exportFilename(campaignName, format string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(campaignName), "_")
	if name == "" {
		name = "leads"
	}
	return fmt.Sprintf("%s_%s.%s", name, time.Now().Format("20060102_150405"), format)
}
