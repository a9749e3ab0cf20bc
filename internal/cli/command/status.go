package command

import (
	"fmt"
	"net/url"
	"time"

	"github.com/urfave/cli/v2"
)

// SessionRow is one live session as listed by 'status sessions'.
type SessionRow struct {
	ID          string    `json:"id"`
	Scope       string    `json:"scope"`
	Phase       string    `json:"phase"`
	Correlation uint64    `json:"correlation" table:"hex"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" table:"wide"`
	Deadline    time.Time `json:"deadline" table:"wide"`
	Result      string    `json:"result,omitempty" table:"wide"`
}

// HealthRow reports one probe result of 'status health'.
type HealthRow struct {
	Probe  string `json:"probe"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StatusCommand returns the status subcommand group.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Read server status over HTTP",
		Subcommands: []*cli.Command{
			{
				Name:  "sessions",
				Usage: "List live snapshot sessions",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "phase", Usage: "Filter by phase: pending, dispatched, prepared"},
				},
				Action: statusSessions,
			},
			{
				Name:   "health",
				Usage:  "Check server health and readiness",
				Action: statusHealth,
			},
		},
	}
}

func statusSessions(c *cli.Context) error {
	path := "/v1/sessions"
	if phase := c.String("phase"); phase != "" {
		path += "?phase=" + url.QueryEscape(phase)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var list struct {
		Items []SessionRow `json:"items"`
		Total int          `json:"total"`
	}
	if err := httpClient(c).GetData(ctx, path, &list); err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(list.Items) == 0 && ParseGlobalFlags(c).Output == "table" {
		fmt.Fprintln(writer(c), "No live sessions.")
		return nil
	}
	return render(c, list.Items)
}

func statusHealth(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	client := httpClient(c)
	rows := make([]HealthRow, 0, 2)
	healthy := true
	for _, probe := range []string{"health", "ready"} {
		var data struct {
			Status string `json:"status"`
		}
		row := HealthRow{Probe: probe}
		if err := client.GetData(ctx, "/"+probe, &data); err != nil {
			row.Status = "failing"
			row.Error = err.Error()
			healthy = false
		} else {
			row.Status = data.Status
		}
		rows = append(rows, row)
	}

	if err := render(c, rows); err != nil {
		return err
	}
	if !healthy {
		return cli.Exit("", 1)
	}
	return nil
}
