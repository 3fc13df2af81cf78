package export

import (
	"context"
	"fmt"
	"time"

	"github.com/honeycarbs/job-discovery/internal/domain"
)

// SheetsClient is the part of the Sheets API the mirror uses
type SheetsClient interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
	Read(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Write(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

var sheetHeader = []any{"Date Found", "Company", "Title", "Location", "Bay Area", "Department", "Date Posted", "Source", "URL", "ID"}

// Sheets appends newly matched jobs to one tab of a spreadsheet
type Sheets struct {
	client        SheetsClient
	spreadsheetID string
	tab           string
}

func NewSheets(client SheetsClient, spreadsheetID, tab string) (*Sheets, error) {
	if client == nil {
		return nil, fmt.Errorf("export.Sheets: client is required")
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("export.Sheets: spreadsheet id is required")
	}
	if tab == "" {
		tab = "Sheet1"
	}
	return &Sheets{client: client, spreadsheetID: spreadsheetID, tab: tab}, nil
}

func (s *Sheets) Name() string {
	return "sheets"
}

// Publish writes the header on an empty tab, then appends one row per job
func (s *Sheets) Publish(ctx context.Context, saved []domain.MatchedJob) error {
	if len(saved) == 0 {
		return nil
	}

	head, err := s.client.Read(ctx, s.spreadsheetID, s.tab+"!A1:J1")
	if err != nil {
		return err
	}
	if len(head) == 0 {
		if err := s.client.Write(ctx, s.spreadsheetID, s.tab+"!A1", [][]any{sheetHeader}); err != nil {
			return err
		}
	}

	return s.client.Append(ctx, s.spreadsheetID, s.tab+"!A1", sheetRows(saved))
}

func sheetRows(jobs []domain.MatchedJob) [][]any {
	rows := make([][]any, 0, len(jobs))
	for _, j := range jobs {
		bay := "No"
		if j.IsBayArea {
			bay = "Yes"
		}
		rows = append(rows, []any{
			j.DateFound.UTC().Format(time.DateOnly),
			j.Company,
			j.Title,
			j.Location,
			bay,
			j.Department,
			j.DatePosted,
			j.Source,
			j.URL,
			j.ID.String(),
		})
	}
	return rows
}
