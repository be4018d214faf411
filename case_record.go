package main

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DisposalStatus selects between concluded and open cases on the search form.
type DisposalStatus string

const (
	Disposed DisposalStatus = "disposed"
	Pending  DisposalStatus = "pending"
)

func parseDisposalStatus(s string) (DisposalStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disposed", "d":
		return Disposed, nil
	case "pending", "p":
		return Pending, nil
	}
	return "", errors.Errorf("unknown disposal status %q", s)
}

// QueryFilter is fixed for the lifetime of a session.
type QueryFilter struct {
	StateCode        string
	DistrictCode     string
	CourtComplexCode string
	CaseTypeCode     string
	Year             string
	DisposalStatus   DisposalStatus
}

var yearPattern = regexp.MustCompile(`^\d{4}$`)

func (f QueryFilter) Validate() error {
	var problems []string
	for name, v := range map[string]string{
		"STATE_CODE":         f.StateCode,
		"DISTRICT_CODE":      f.DistrictCode,
		"COURT_COMPLEX_CODE": f.CourtComplexCode,
		"CASE_TYPE_CODE":     f.CaseTypeCode,
	} {
		if strings.TrimSpace(v) == "" {
			problems = append(problems, name+" is required")
		}
	}
	if !yearPattern.MatchString(f.Year) {
		problems = append(problems, "CASE_YEAR must be a 4 digit year")
	}
	if f.DisposalStatus != Disposed && f.DisposalStatus != Pending {
		problems = append(problems, "DISPOSAL_STATUS must be disposed or pending")
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// CaseRecord is one normalized row of the output file.
type CaseRecord struct {
	StateCode          string
	DistrictCode       string
	CaseType           string
	FilingNumber       string
	FilingDate         string
	RegistrationNumber string
	RegistrationDate   string
	CNRNumber          string
	FirstHearingDate   string
	DecisionDate       string
	CaseStatus         string
	NatureOfDisposal   string
	CourtAndJudge      string

	Petitioners         []string
	PetitionerAdvocates []string
	Respondents         []string
	RespondentAdvocates []string
	Acts                []string
	Sections            []string

	PdfDownloaded bool

	// not part of the CSV row
	JudgmentPath string
	JudgmentURL  string
}

const listSeparator = "; "

// csvHeader is the literal header row; the last column is optional.
var csvHeader = []string{
	"State Code", "District Code", "Case Type", "Filing Number", "Filing Date",
	"Registration Number", "Registration Date", "CNR Number", "First Hearing Date",
	"Decision Date", "Case Status", "Nature of Disposal", "Court Number and Judge",
	"Petitioners", "Petitioner Advocates", "Respondents", "Respondent Advocates",
	"Acts", "Sections", "PDF Downloaded",
}

// cnrColumn is the index of "CNR Number" in csvHeader.
const cnrColumn = 7

func recordHeader(includePDF bool) []string {
	if includePDF {
		return append([]string(nil), csvHeader...)
	}
	return append([]string(nil), csvHeader[:len(csvHeader)-1]...)
}

// Row serializes the record in header order.
func (r CaseRecord) Row(includePDF bool) []string {
	row := []string{
		r.StateCode,
		r.DistrictCode,
		r.CaseType,
		r.FilingNumber,
		r.FilingDate,
		r.RegistrationNumber,
		r.RegistrationDate,
		r.CNRNumber,
		r.FirstHearingDate,
		r.DecisionDate,
		r.CaseStatus,
		r.NatureOfDisposal,
		r.CourtAndJudge,
		strings.Join(r.Petitioners, listSeparator),
		strings.Join(r.PetitionerAdvocates, listSeparator),
		strings.Join(r.Respondents, listSeparator),
		strings.Join(r.RespondentAdvocates, listSeparator),
		strings.Join(r.Acts, listSeparator),
		strings.Join(r.Sections, listSeparator),
	}
	if includePDF {
		row = append(row, strconv.FormatBool(r.PdfDownloaded))
	}
	return row
}

// Aligned reports whether every paired list has matching length.
func (r CaseRecord) Aligned() bool {
	return len(r.Petitioners) == len(r.PetitionerAdvocates) &&
		len(r.Respondents) == len(r.RespondentAdvocates) &&
		len(r.Acts) == len(r.Sections)
}

// align pads the shorter list of a pair with empty placeholders.
func align(a, b []string) ([]string, []string) {
	for len(a) < len(b) {
		a = append(a, "")
	}
	for len(b) < len(a) {
		b = append(b, "")
	}
	return a, b
}

// normalize makes nil lists empty and restores pair alignment.
func (r CaseRecord) normalize() CaseRecord {
	r.Petitioners, r.PetitionerAdvocates = align(nonNil(r.Petitioners), nonNil(r.PetitionerAdvocates))
	r.Respondents, r.RespondentAdvocates = align(nonNil(r.Respondents), nonNil(r.RespondentAdvocates))
	r.Acts, r.Sections = align(nonNil(r.Acts), nonNil(r.Sections))
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// PaginationCursor only moves forward.
type PaginationCursor struct {
	PageNumber int
	HasNext    bool
}

// CaptchaAttempt lives for one solve attempt and is never persisted.
type CaptchaAttempt struct {
	ImageBytes     []byte
	RecognizedText string
	Accepted       bool
	Stage          CaptchaStage
}

// RunStats summarizes a run for the exit log line.
type RunStats struct {
	Pages      []int
	Cases      int
	Written    int
	Duplicates int
	Abandoned  int // failed before a record was written
	Stranded   int // written, but the way back to the list failed
	PDFs       int
}
