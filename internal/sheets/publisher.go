// Package sheets mirrors week calendars into a Google spreadsheet, one tab
// per room.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"roombook/internal/export"
	"roombook/internal/model"
	"roombook/internal/slots"
)

// Publisher writes rendered weeks to a spreadsheet.
type Publisher struct {
	svc           *gsheets.Service
	spreadsheetID string
	logger        zerolog.Logger
}

// NewPublisher authenticates with the service account key at credentialsPath.
func NewPublisher(ctx context.Context, credentialsPath, spreadsheetID string, logger *zerolog.Logger) (*Publisher, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return NewPublisherWithOptions(ctx, spreadsheetID, logger, option.WithCredentials(creds))
}

// NewPublisherWithOptions builds a publisher from explicit client options.
func NewPublisherWithOptions(ctx context.Context, spreadsheetID string, logger *zerolog.Logger, opts ...option.ClientOption) (*Publisher, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "sheets").Logger()
	}
	return &Publisher{svc: svc, spreadsheetID: spreadsheetID, logger: l}, nil
}

// PublishWeek replaces the room's tab with view.
func (p *Publisher) PublishWeek(ctx context.Context, room model.Room, view *slots.WeekView) error {
	tab := tabName(room)
	if err := p.ensureTab(ctx, tab); err != nil {
		return err
	}

	values := append([][]interface{}{{fmt.Sprintf("%s, %s", room.Title, view.Week)}}, export.GridValues(view)...)
	rng := fmt.Sprintf("'%s'!A1", tab)

	if _, err := p.svc.Spreadsheets.Values.Clear(p.spreadsheetID, fmt.Sprintf("'%s'", tab), &gsheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	if _, err := p.svc.Spreadsheets.Values.Update(p.spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", tab, err)
	}

	p.logger.Debug().Str("tab", tab).Str("week", view.Week.Key()).Msg("week published")
	return nil
}

func (p *Publisher) ensureTab(ctx context.Context, tab string) error {
	ss, err := p.svc.Spreadsheets.Get(p.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: []*gsheets.Request{{
		AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: tab}},
	}}}
	if _, err := p.svc.Spreadsheets.BatchUpdate(p.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	p.logger.Info().Str("tab", tab).Msg("sheet tab created")
	return nil
}

// tabName strips the characters the sheet title rejects.
func tabName(room model.Room) string {
	name := room.Title
	if name == "" {
		name = room.ID
	}
	name = strings.NewReplacer("'", "", "[", "(", "]", ")", ":", "-", "*", "", "?", "", "/", "-", `\`, "-").Replace(name)
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}
