package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/models"
)

// SearchFlags are the filters shared by the leaked and vulnerability listings.
type SearchFlags struct {
	Query      string   `help:"Full text query" short:"q"`
	From       string   `help:"Only entries uploaded on or after this date"`
	To         string   `help:"Only entries uploaded on or before this date"`
	Sort       string   `help:"Sort order, for example uploadDate,desc"`
	Page       int      `help:"Page number, starting at 0" default:"0"`
	Limit      int      `help:"Entries per page" default:"20"`
	Host       []string `help:"Only these hosts"`
	Path       string   `help:"Path contains"`
	Title      string   `help:"Title contains"`
	Author     string   `help:"Author"`
	Projection string   `help:"Server side projection"`
	JSON       bool     `help:"Print the page as JSON" name:"json"`
}

func (f SearchFlags) params() models.SearchParams {
	return models.SearchParams{
		From:          f.From,
		To:            f.To,
		Sort:          f.Sort,
		Page:          f.Page,
		Limit:         f.Limit,
		Hosts:         f.Host,
		PathContains:  f.Path,
		TitleContains: f.Title,
		Author:        f.Author,
		Query:         f.Query,
		Projection:    f.Projection,
	}
}

// LeakedCmd browses and submits leaked data.
type LeakedCmd struct {
	List   LeakedListCmd   `cmd:"" default:"1" help:"Search leaked data"`
	Show   LeakedShowCmd   `cmd:"" help:"Show one leaked data entry"`
	Find   LeakedFindCmd   `cmd:"" help:"Check whether emails or names appear in leaks"`
	Submit LeakedSubmitCmd `cmd:"" help:"Submit a leaked data entry (contributors)"`
}

type LeakedListCmd struct {
	SearchFlags `embed:""`

	RecordMin *int   `help:"Minimum record count"`
	RecordMax *int   `help:"Maximum record count"`
	IOC       string `help:"IOC contains" name:"ioc"`
}

func (c *LeakedListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	page, err := app.API.Data.Leaked(ctx, models.LeakedDataSearch{
		SearchParams: c.params(),
		RecordMin:    c.RecordMin,
		RecordMax:    c.RecordMax,
		IOCContains:  c.IOC,
	})
	if err != nil {
		return failed("leaked data search", err)
	}

	if c.JSON {
		return app.printJSON(page)
	}

	if len(page.Content) == 0 {
		app.printf("No leaked data found.\n")
		return nil
	}

	app.printf("%-24s %-24s %-36s %-12s %-10s %-20s\n", "ID", "Host", "Title", "Type", "Records", "Uploaded")
	app.printf("%s\n", strings.Repeat("─", 131))
	for _, d := range page.Content {
		app.printf("%-24s %-24s %-36s %-12s %-10d %-20s\n",
			truncate(d.ID, 24),
			truncate(d.Host, 24),
			truncate(d.Title, 36),
			truncate(d.LeakType, 12),
			d.RecordsCount,
			formatTimestamp(d.UploadDate))
	}
	printPage(app, page.Number, page.TotalPages, page.TotalElements)
	return nil
}

type LeakedShowCmd struct {
	ID   string `arg:"" help:"Entry ID"`
	JSON bool   `help:"Print the entry as JSON" name:"json"`
}

func (c *LeakedShowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	d, err := app.API.Data.LeakedDetail(ctx, c.ID)
	if err != nil {
		return failed("leaked data", err)
	}

	if c.JSON {
		return app.printJSON(d)
	}
	app.printf("ID:        %s\n", d.ID)
	app.printf("Title:     %s\n", d.Title)
	app.printf("Host:      %s%s\n", d.Host, d.Path)
	app.printf("Author:    %s\n", d.Author)
	app.printf("Type:      %s\n", d.LeakType)
	app.printf("Records:   %d\n", d.RecordsCount)
	app.printf("Uploaded:  %s\n", formatTimestamp(d.UploadDate))
	if d.Price != "" {
		app.printf("Price:     %s\n", d.Price)
	}
	if d.IOCs != "" {
		app.printf("IOCs:      %s\n", d.IOCs)
	}
	for _, ref := range d.Ref {
		app.printf("Ref:       %s\n", ref)
	}
	if d.Article != "" {
		app.printf("\n%s\n", d.Article)
	}
	return nil
}

type LeakedFindCmd struct {
	Email []string `help:"Email address to look for"`
	Name  []string `help:"Name to look for"`
}

func (c *LeakedFindCmd) Run(ctx context.Context, globals *Globals) error {
	if len(c.Email) == 0 && len(c.Name) == 0 {
		return fmt.Errorf("pass at least one --email or --name")
	}

	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	res, err := app.API.Data.FindPersonal(ctx, models.PersonalDataSearch{Emails: c.Email, Names: c.Name})
	if err != nil {
		return failed("personal data search", err)
	}

	for _, m := range res.Matches {
		subject := m.Email
		if subject == "" {
			subject = m.Name
		}
		if m.Found {
			app.printf("%-40s found in %s: %s\n", subject, plural(len(m.LeakIDs), "leak"), strings.Join(m.LeakIDs, ", "))
		} else {
			app.printf("%-40s not found\n", subject)
		}
	}
	app.printf("\nTotal found: %d\n", res.TotalFound)
	return nil
}

type LeakedSubmitCmd struct {
	File  string `arg:"" help:"JSON file with the entry, - reads stdin"`
	Retry uint   `help:"Attempts when rate limited" default:"1"`
}

func (c *LeakedSubmitCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	var entry models.LeakedDataSubmission
	if err := app.readJSON(c.File, &entry); err != nil {
		return err
	}

	res, err := retryRateLimited(ctx, c.Retry, func() (models.SubmitResult, error) {
		return app.API.Data.SubmitLeaked(ctx, entry)
	})
	if err != nil {
		return failed("leaked data submit", err)
	}
	log.Debug().Str("result", res.Result).Str("reason", res.Reason).Msg("leaked data submitted")

	printSubmit(app, res)
	return nil
}

// VulnsCmd browses and submits vulnerability data.
type VulnsCmd struct {
	List   VulnsListCmd   `cmd:"" default:"1" help:"Search vulnerability data"`
	Show   VulnsShowCmd   `cmd:"" help:"Show one vulnerability entry"`
	Submit VulnsSubmitCmd `cmd:"" help:"Submit a vulnerability entry (contributors)"`
}

type VulnsListCmd struct {
	SearchFlags `embed:""`

	CVE       []string `help:"CVE identifiers" name:"cve"`
	CVSSMin   *float64 `help:"Minimum CVSS score" name:"cvss-min"`
	CVSSMax   *float64 `help:"Maximum CVSS score" name:"cvss-max"`
	VulnClass string   `help:"Vulnerability class"`
}

func (c *VulnsListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	page, err := app.API.Data.Vulnerabilities(ctx, models.VulnerabilityDataSearch{
		SearchParams: c.params(),
		CVEs:         c.CVE,
		CVSSMin:      c.CVSSMin,
		CVSSMax:      c.CVSSMax,
		VulnClass:    c.VulnClass,
	})
	if err != nil {
		return failed("vulnerability search", err)
	}

	if c.JSON {
		return app.printJSON(page)
	}

	if len(page.Content) == 0 {
		app.printf("No vulnerabilities found.\n")
		return nil
	}

	app.printf("%-24s %-24s %-36s %-18s %-6s %-20s\n", "ID", "Host", "Title", "CVE", "CVSS", "Uploaded")
	app.printf("%s\n", strings.Repeat("─", 133))
	for _, v := range page.Content {
		app.printf("%-24s %-24s %-36s %-18s %-6s %-20s\n",
			truncate(v.ID, 24),
			truncate(v.Host, 24),
			truncate(v.Title, 36),
			truncate(strings.Join(v.CVEIDs, ","), 18),
			v.CVSS,
			formatTimestamp(v.UploadDate))
	}
	printPage(app, page.Number, page.TotalPages, page.TotalElements)
	return nil
}

type VulnsShowCmd struct {
	ID   string `arg:"" help:"Entry ID"`
	JSON bool   `help:"Print the entry as JSON" name:"json"`
}

func (c *VulnsShowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	v, err := app.API.Data.VulnerabilityDetail(ctx, c.ID)
	if err != nil {
		return failed("vulnerability", err)
	}

	if c.JSON {
		return app.printJSON(v)
	}
	app.printf("ID:         %s\n", v.ID)
	app.printf("Title:      %s\n", v.Title)
	app.printf("Host:       %s%s\n", v.Host, v.Path)
	app.printf("Author:     %s\n", v.Author)
	app.printf("CVE:        %s\n", strings.Join(v.CVEIDs, ", "))
	app.printf("CVSS:       %s\n", v.CVSS)
	if len(v.VulnerabilityClass) > 0 {
		app.printf("Class:      %s\n", strings.Join(v.VulnerabilityClass, ", "))
	}
	if len(v.Products) > 0 {
		app.printf("Products:   %s\n", strings.Join(v.Products, ", "))
	}
	if len(v.ExploitationTechnique) > 0 {
		app.printf("Technique:  %s\n", strings.Join(v.ExploitationTechnique, ", "))
	}
	app.printf("Uploaded:   %s\n", formatTimestamp(v.UploadDate))
	for _, ref := range v.Ref {
		app.printf("Ref:        %s\n", ref)
	}
	if v.Article != "" {
		app.printf("\n%s\n", v.Article)
	}
	return nil
}

type VulnsSubmitCmd struct {
	File  string `arg:"" help:"JSON file with the entry, - reads stdin"`
	Retry uint   `help:"Attempts when rate limited" default:"1"`
}

func (c *VulnsSubmitCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	var entry models.VulnerabilityDataSubmission
	if err := app.readJSON(c.File, &entry); err != nil {
		return err
	}

	res, err := retryRateLimited(ctx, c.Retry, func() (models.SubmitResult, error) {
		return app.API.Data.SubmitVulnerability(ctx, entry)
	})
	if err != nil {
		return failed("vulnerability submit", err)
	}
	log.Debug().Str("result", res.Result).Str("reason", res.Reason).Msg("vulnerability submitted")

	printSubmit(app, res)
	return nil
}

// UploadCmd streams a file to an upload endpoint with progress.
type UploadCmd struct {
	File  string `arg:"" help:"File to upload" type:"existingfile"`
	Path  string `help:"API path to upload to, for example /contrib/uploads" required:""`
	Field string `help:"Multipart field name" default:"file"`
	Quiet bool   `help:"Do not print progress" short:"q"`
	JSON  bool   `help:"Print the server response as JSON" name:"json"`
}

func (c *UploadCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	log.Debug().Str("file", c.File).Str("path", c.Path).Msg("starting upload")

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.File, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", c.File, err)
	}

	name := filepath.Base(c.File)

	// progress runs on the body writer goroutine
	var last atomic.Int64
	last.Store(-1)
	progress := func(p client.Progress) {
		pct := int64(p.Percent())
		if pct >= 0 && last.Swap(pct) != pct {
			app.printf("\rUploading %s %3d%%", name, pct)
		}
	}
	if c.Quiet {
		progress = nil
	}

	var resp json.RawMessage
	err = app.Client.Upload(ctx, c.Path, c.Field, name, f, info.Size(), progress, &resp)
	if !c.Quiet && last.Load() >= 0 {
		app.printf("\n")
	}
	if err != nil {
		return failed("upload", err)
	}
	log.Debug().Str("file", name).Int64("bytes", info.Size()).Str("path", c.Path).Msg("upload complete")

	if c.JSON && len(resp) > 0 {
		return app.printJSON(resp)
	}
	app.printf("Uploaded %s (%d bytes)\n", name, info.Size())
	return nil
}

func printSubmit(app *App, res models.SubmitResult) {
	if res.Reason != "" {
		app.printf("%s: %s\n", res.Result, res.Reason)
		return
	}
	app.printf("%s\n", messageOr(res.Result, "Submitted"))
}

func printPage(app *App, number, total, elements int) {
	app.printf("\nTotal entries: %d\n", elements)
	if total > 1 {
		app.printf("Pages: %d/%d\n", number+1, total)
		if number+1 < total {
			app.printf("Use --page=%d to see next page\n", number+1)
		}
	}
}

// readJSON decodes a file, or stdin when path is "-".
func (a *App) readJSON(path string, v any) error {
	var r io.Reader
	if path == "-" {
		r = a.in
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
