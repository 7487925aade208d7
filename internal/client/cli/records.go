package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
	"github.com/dmitrijs2005/farmadvisor/internal/client/services"
)

// LogActivity asks for one day of field work and saves it as a farm log.
func (a *App) LogActivity(ctx context.Context) error {
	var l models.FarmLog
	var err error

	if l.Date, err = GetSimpleText(a.reader, "Date (YYYY-MM-DD, empty for today)", a.out); err != nil {
		return err
	}
	if l.Date == "" {
		l.Date = a.now().Format(models.FarmLogDateLayout)
	}
	if l.Crop, err = GetSimpleText(a.reader, "Crop", a.out); err != nil {
		return err
	}
	if l.Activity, err = GetSimpleText(a.reader, "Activity (sowing, weeding, spraying...)", a.out); err != nil {
		return err
	}
	if l.Water, err = GetNumber(a.reader, "Water used (litres)", 0, a.out); err != nil {
		return err
	}
	if l.Fertilizer, err = GetNumber(a.reader, "Fertilizer used (kg)", 0, a.out); err != nil {
		return err
	}
	if l.Pesticide, err = GetNumber(a.reader, "Pesticide used (litres)", 0, a.out); err != nil {
		return err
	}
	if l.Rotation, err = GetYesNo(a.reader, "Crop rotation practised?", false, a.out); err != nil {
		return err
	}
	if l.Notes, err = GetMultiline(a.reader, "Notes", a.out); err != nil {
		return err
	}

	res, err := a.records.SaveFarmLog(ctx, &l)
	if err != nil {
		return err
	}
	a.reportSave("farm log", res)
	return nil
}

// AddSoilSample asks for a soil test result and saves it.
func (a *App) AddSoilSample(ctx context.Context) error {
	var s models.SoilSample
	var err error

	if s.Location, err = GetSimpleText(a.reader, "Plot or location", a.out); err != nil {
		return err
	}
	if s.Crop, err = GetSimpleText(a.reader, "Crop", a.out); err != nil {
		return err
	}
	if s.PH, err = GetNumber(a.reader, "pH", 7, a.out); err != nil {
		return err
	}
	if s.Nitrogen, err = GetNumber(a.reader, "Nitrogen (kg/ha)", 0, a.out); err != nil {
		return err
	}
	if s.Phosphorus, err = GetNumber(a.reader, "Phosphorus (kg/ha)", 0, a.out); err != nil {
		return err
	}
	if s.Potassium, err = GetNumber(a.reader, "Potassium (kg/ha)", 0, a.out); err != nil {
		return err
	}
	if s.Moisture, err = GetNumber(a.reader, "Moisture (%)", 0, a.out); err != nil {
		return err
	}
	s.SampledAt = a.now().UTC()

	res, err := a.records.SaveSoilSample(ctx, &s)
	if err != nil {
		return err
	}
	a.reportSave("soil sample", res)
	return nil
}

func (a *App) reportSave(what string, res services.SaveResult) {
	switch {
	case res.Synced:
		fmt.Fprintf(a.out, "Saved %s %s (synced)\n", what, res.ID)
	case res.TaskID != "":
		fmt.Fprintf(a.out, "Saved %s %s (queued for sync)\n", what, res.ID)
	default:
		fmt.Fprintf(a.out, "Saved %s %s\n", what, res.ID)
	}
}

// List prints the records of a collection, farm logs by default.
func (a *App) List(ctx context.Context, args []string) error {
	c := models.CollFarmLogs
	if len(args) > 0 {
		var err error
		if c, err = models.ParseCollection(args[0]); err != nil {
			return err
		}
	}

	recs, err := a.records.List(ctx, c)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintf(a.out, "No %s records\n", c)
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tINDEX\tSYNCED\tUPDATED")
	for _, r := range recs {
		synced := "no"
		switch {
		case r.Static:
			synced = "static"
		case r.Synced:
			synced = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.IndexKey, synced, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// Show prints one record's payload as indented JSON.
func (a *App) Show(ctx context.Context, args []string) error {
	c, id, err := collectionAndID(args)
	if err != nil {
		return err
	}
	rec, err := a.records.Get(ctx, c, id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, rec.Payload, "", "  "); err != nil {
		return fmt.Errorf("failed to format record: %w", err)
	}
	fmt.Fprintf(a.out, "%s/%s synced=%t\n%s\n", c, rec.ID, rec.Synced, buf.String())
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	c, id, err := collectionAndID(args)
	if err != nil {
		return err
	}
	if err := a.records.Delete(ctx, c, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s/%s\n", c, id)
	return nil
}

func collectionAndID(args []string) (models.Collection, string, error) {
	if len(args) < 2 {
		return "", "", fmt.Errorf("usage: <collection> <id>")
	}
	c, err := models.ParseCollection(args[0])
	if err != nil {
		return "", "", err
	}
	return c, strings.Join(args[1:], " "), nil
}
