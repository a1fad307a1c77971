package main

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheet-extractor/constants"
	"github.com/joseph-ayodele/sheet-extractor/internal/common"
	"github.com/joseph-ayodele/sheet-extractor/internal/history"
	"github.com/joseph-ayodele/sheet-extractor/internal/repository"
)

type historyOptions struct {
	name string
	date string
	tags []string
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the submission ledger",
		Long: `Print ledger records, most recent first.

Filters combine with AND; --tag may repeat and matches any of the given tags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "substring of the spreadsheet filename (case-insensitive)")
	cmd.Flags().StringVar(&opts.date, "date", "", "submission date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "tag to match (repeatable)")
	return cmd
}

func runHistory(cmd *cobra.Command, root *rootOptions, opts *historyOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger("error")

	v := common.NewValidator().Field("date", opts.date, common.OptionalDate)
	if err := v.Error(); err != nil {
		return err
	}
	var unknown []string
	for _, t := range opts.tags {
		if _, ok := constants.CanonicalizeTag(cfg.Tags, t); !ok {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown tags: %s", strings.Join(unknown, ", "))
	}

	ledger, closeLedger, err := repository.OpenLedger(cmd.Context(), cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	records, err := ledger.LoadAll(cmd.Context())
	if err != nil {
		return err
	}
	res := history.Filter{
		Name: opts.name,
		Date: opts.date,
		Tags: constants.FilterTags(cfg.Tags, opts.tags),
	}.Apply(records)

	out := cmd.OutOrStdout()
	if res.Empty {
		fmt.Fprintln(out, "Nenhum resultado encontrado com os filtros aplicados.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Timestamp", "Date", "Spreadsheet", "Image", "Tags"})
	table.SetAutoWrapText(false)
	for _, rec := range res.Records {
		table.Append([]string{rec.Timestamp, rec.Date, rec.ExcelFilename, rec.ImageFilename, strings.Join(rec.Tags, ", ")})
	}
	table.Render()
	return nil
}
