package main

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// CaseRecordExtractor reads the open detail view into a CaseRecord.
type CaseRecordExtractor struct {
	loc      Locator
	contract PortalContract
	timing   TimingConfig
}

func NewCaseRecordExtractor(loc Locator, contract PortalContract, timing TimingConfig) *CaseRecordExtractor {
	return &CaseRecordExtractor{loc: loc, contract: contract, timing: timing}
}

// Extract waits for the detail container and parses a snapshot of it. Only a
// missing container is an error; missing tables leave their fields empty.
func (e *CaseRecordExtractor) Extract(ctx context.Context, filter QueryFilter) (CaseRecord, error) {
	container, err := e.loc.WaitFor(ctx, e.contract.DetailContainer, e.timing.Detail)
	if err != nil {
		return CaseRecord{}, &NavigationError{Step: "detail_view", Err: err}
	}
	snapshot, err := container.HTML()
	if err != nil {
		return CaseRecord{}, &NavigationError{Step: "detail_view", Err: err}
	}
	return ParseCaseDetail(snapshot, e.contract, filter)
}

// ParseCaseDetail builds a record from the detail view markup.
func ParseCaseDetail(markup string, contract PortalContract, filter QueryFilter) (CaseRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return CaseRecord{}, errors.Wrap(err, "parse detail view")
	}

	details := keyValueTable(doc.Find(contract.CaseDetailsTable).First())
	status := keyValueTable(doc.Find(contract.CaseStatusTable).First())

	rec := CaseRecord{
		StateCode:          filter.StateCode,
		DistrictCode:       filter.DistrictCode,
		CaseType:           details["Case Type"],
		FilingNumber:       details["Filing Number"],
		FilingDate:         details["Filing Date"],
		RegistrationNumber: details["Registration Number"],
		RegistrationDate:   details["Registration Date"],
		CNRNumber:          cnrNumber(details["CNR Number"]),
		FirstHearingDate:   status["First Hearing Date"],
		DecisionDate:       status["Decision Date"],
		CaseStatus:         firstNonEmpty(status["Case Status"], status["Case Stage"]),
		NatureOfDisposal:   status["Nature of Disposal"],
		CourtAndJudge:      status["Court Number and Judge"],
	}
	rec.Petitioners, rec.PetitionerAdvocates = partyTable(doc.Find(contract.PetitionerTable).First())
	rec.Respondents, rec.RespondentAdvocates = partyTable(doc.Find(contract.RespondentTable).First())
	rec.Acts, rec.Sections = actsTable(doc.Find(contract.ActsTable).First())

	return rec.normalize(), nil
}

// keyValueTable reads label/value cell pairs. A row can carry two pairs.
func keyValueTable(table *goquery.Selection) map[string]string {
	data := map[string]string{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		for i := 0; i+1 < cells.Length(); i += 2 {
			key := cleanLabel(cellText(cells.Eq(i)))
			if key == "" {
				continue
			}
			// a repeated label keeps its last value
			data[key] = cleanText(cellText(cells.Eq(i + 1)))
		}
	})
	return data
}

var partyIndex = regexp.MustCompile(`\d+\)`)

const advocatePrefix = "Advocate-"

// partyTable splits the numbered party list of the first cell. Every party
// gets an advocate entry, empty when none is listed.
func partyTable(table *goquery.Selection) ([]string, []string) {
	parties, advocates := []string{}, []string{}
	cell := table.Find("td").First()
	if cell.Length() == 0 {
		return parties, advocates
	}
	entries := partyIndex.Split(cellText(cell), -1)
	for _, entry := range entries[1:] {
		lines := strings.Split(strings.TrimSpace(entry), "\n")
		party := cleanText(lines[0])
		advocate := ""
		for _, line := range lines[1:] {
			line = cleanText(line)
			if strings.HasPrefix(line, advocatePrefix) {
				advocate = strings.TrimSpace(strings.TrimPrefix(line, advocatePrefix))
				break
			}
		}
		parties = append(parties, party)
		advocates = append(advocates, advocate)
	}
	return parties, advocates
}

// actsTable reads act/section rows, skipping the header row.
func actsTable(table *goquery.Selection) ([]string, []string) {
	acts, sections := []string{}, []string{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		acts = append(acts, cleanText(cellText(cells.Eq(0))))
		sections = append(sections, cleanText(cellText(cells.Eq(1))))
	})
	return acts, sections
}

// cellText renders a cell the way a browser shows it: <br> and block
// boundaries become newlines.
func cellText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		renderText(&b, n)
	}
	return b.String()
}

func renderText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "script", "style":
			return
		}
	}
	block := n.Type == html.ElementNode && (n.Data == "p" || n.Data == "div" || n.Data == "li")
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// cleanText folds compatibility characters (nbsp included) and collapses
// whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func cleanLabel(s string) string {
	return strings.TrimSpace(strings.Trim(cleanText(s), ":"))
}

var cnrPattern = regexp.MustCompile(`[A-Z]{4}\d{12}`)

// cnrNumber drops the helper text the portal prints next to the CNR.
func cnrNumber(s string) string {
	if m := cnrPattern.FindString(s); m != "" {
		return m
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
