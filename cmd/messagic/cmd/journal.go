package cmd

import (
	"encoding/base64"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"messagic/store"
	"messagic/wire"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspects the message journal.",
}

var journalListCmd = &cobra.Command{
	Use:   "list <session?>",
	Short: "Lists journaled sessions, or the records of one session.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := store.Open(cfg.JournalPath(configuredHomeDir))
		if err != nil {
			return err
		}
		defer db.Close()

		table := tablewriter.NewWriter(os.Stdout)
		if len(args) == 0 {
			sessions, err := store.ListSessions(db)
			if err != nil {
				return err
			}
			table.SetHeader([]string{"Session", "Started At"})
			for _, s := range sessions {
				table.Append([]string{s.ID, s.StartedAt.Format(time.RFC3339)})
			}
			table.Render()
			return nil
		}

		rs := store.StreamRecords(db, args[0])
		defer rs.Close()
		table.SetHeader([]string{"Seq", "Direction", "Kind", "Payload", "Timestamp"})
		for {
			rec, err := rs.Next()
			if err != nil {
				return err
			}
			if rec == nil {
				break
			}
			payload := string(rec.Payload)
			if rec.Kind == wire.KindBinary {
				payload = base64.StdEncoding.EncodeToString(rec.Payload)
			}
			table.Append([]string{
				strconv.FormatUint(rec.Seq, 10),
				rec.Direction.String(),
				rec.Kind.String(),
				payload,
				rec.Timestamp.Format(time.RFC3339Nano),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	journalCmd.AddCommand(journalListCmd)
	rootCmd.AddCommand(journalCmd)
}
