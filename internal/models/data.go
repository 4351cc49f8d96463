package models

import (
	"net/url"
	"strconv"
	"strings"
)

type LeakedData struct {
	ID           string   `json:"id"`
	ClientID     string   `json:"clientId"`
	Host         string   `json:"host"`
	Path         string   `json:"path"`
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	UploadDate   string   `json:"uploadDate"`
	LeakType     string   `json:"leakType"`
	RecordsCount int      `json:"recordsCount"`
	IOCs         string   `json:"iocs"`
	Price        string   `json:"price"`
	Article      string   `json:"article"`
	Ref          []string `json:"ref"`
	CreatedAt    string   `json:"createdAt"`
}

type VulnerabilityData struct {
	ID                    string   `json:"id"`
	ClientID              string   `json:"clientId"`
	Host                  string   `json:"host"`
	Path                  string   `json:"path"`
	Title                 string   `json:"title"`
	Author                string   `json:"author"`
	UploadDate            string   `json:"uploadDate"`
	CVEIDs                []string `json:"cveIds"`
	CVSS                  string   `json:"cvss"`
	VulnerabilityClass    []string `json:"vulnerabilityClass"`
	Products              []string `json:"products"`
	ExploitationTechnique []string `json:"exploitationTechnique"`
	Article               string   `json:"article"`
	Ref                   []string `json:"ref"`
	CreatedAt             string   `json:"createdAt"`
}

// LeakedDataSubmission is pushed by contributors.
type LeakedDataSubmission struct {
	ClientID     string   `json:"clientId"`
	Host         string   `json:"host"`
	Path         string   `json:"path"`
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	UploadDate   string   `json:"uploadDate"`
	LeakType     string   `json:"leakType"`
	RecordsCount *int     `json:"recordsCount,omitempty"`
	IOCs         string   `json:"iocs,omitempty"`
	Price        string   `json:"price,omitempty"`
	Article      string   `json:"article"`
	Ref          []string `json:"ref,omitempty"`
	LeakedEmail  []string `json:"leakedEmail,omitempty"`
	LeakedName   []string `json:"leakedName,omitempty"`
}

type VulnerabilityDataSubmission struct {
	ClientID              string   `json:"clientId"`
	Host                  string   `json:"host"`
	Path                  string   `json:"path"`
	Title                 string   `json:"title"`
	Author                string   `json:"author"`
	UploadDate            string   `json:"uploadDate"`
	CVEIDs                []string `json:"cveIds,omitempty"`
	CVSS                  string   `json:"cvss,omitempty"`
	VulnerabilityClass    []string `json:"vulnerabilityClass,omitempty"`
	Products              []string `json:"products,omitempty"`
	ExploitationTechnique []string `json:"exploitationTechnique,omitempty"`
	Article               string   `json:"article"`
	Ref                   []string `json:"ref,omitempty"`
}

type PersonalDataSearch struct {
	Emails []string `json:"emails,omitempty"`
	Names  []string `json:"names,omitempty"`
}

type PersonalDataMatch struct {
	Email   string   `json:"email,omitempty"`
	Name    string   `json:"name,omitempty"`
	Found   bool     `json:"found"`
	LeakIDs []string `json:"leakIds"`
}

type PersonalDataSearchResult struct {
	Matches    []PersonalDataMatch `json:"matches"`
	TotalFound int                 `json:"totalFound"`
}

// SearchParams are the filters shared by the leaked and vulnerability listings.
type SearchParams struct {
	From          string
	To            string
	Sort          string
	Page          int
	Limit         int
	Hosts         []string
	PathContains  string
	TitleContains string
	Author        string
	Query         string
	Projection    string
}

func (p SearchParams) encode(v url.Values) {
	setString(v, "from", p.From)
	setString(v, "to", p.To)
	setString(v, "sort", p.Sort)
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	setString(v, "host", strings.Join(p.Hosts, ","))
	setString(v, "pathContains", p.PathContains)
	setString(v, "titleContains", p.TitleContains)
	setString(v, "author", p.Author)
	setString(v, "q", p.Query)
	setString(v, "projection", p.Projection)
}

type LeakedDataSearch struct {
	SearchParams
	RecordMin   *int
	RecordMax   *int
	IOCContains string
}

// Values encodes the search as query parameters, omitting unset filters.
func (s LeakedDataSearch) Values() url.Values {
	v := url.Values{}
	s.encode(v)
	if s.RecordMin != nil {
		v.Set("recordMin", strconv.Itoa(*s.RecordMin))
	}
	if s.RecordMax != nil {
		v.Set("recordMax", strconv.Itoa(*s.RecordMax))
	}
	setString(v, "iocContains", s.IOCContains)
	return v
}

type VulnerabilityDataSearch struct {
	SearchParams
	CVEs      []string
	CVSSMin   *float64
	CVSSMax   *float64
	VulnClass string
}

// Values encodes the search as query parameters, omitting unset filters.
func (s VulnerabilityDataSearch) Values() url.Values {
	v := url.Values{}
	s.encode(v)
	setString(v, "cve", strings.Join(s.CVEs, ","))
	if s.CVSSMin != nil {
		v.Set("cvssMin", strconv.FormatFloat(*s.CVSSMin, 'f', -1, 64))
	}
	if s.CVSSMax != nil {
		v.Set("cvssMax", strconv.FormatFloat(*s.CVSSMax, 'f', -1, 64))
	}
	setString(v, "vulnClass", s.VulnClass)
	return v
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
