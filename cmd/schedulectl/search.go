package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/schedulehub/p2p/internal/schedule"
)

type searchOptions struct {
	from        string
	to          string
	date        string
	dateType    string
	searchRange int
	scacs       []string
	directOnly  bool
	tsp         string
	vesselIMO   string
	service     string
	compact     bool
}

func newSearchCmd(open opener, logger func(*cobra.Command) zerolog.Logger) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search schedules between two ports",
		Example: `  schedulectl search --from HKHKG --to DEHAM --date 2024-01-01
  schedulectl search --from CNSHA --to NLRTM --date 2024-03-01 --scac MAEU,HLCU --direct-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := opts.query(cmd.Flags().Changed("direct-only"))
			if err != nil {
				return err
			}

			s, release, err := open(cmd.Context(), logger(cmd))
			if err != nil {
				return fmt.Errorf("starting search pipeline: %w", err)
			}
			defer release()

			resp, err := s.Search(cmd.Context(), q)
			if err != nil {
				return err
			}

			body := resp.Body
			if !opts.compact {
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, body, "", "  "); err == nil {
					body = pretty.Bytes()
				}
			}
			printf(cmd.OutOrStdout(), "%s\n", body)

			if len(resp.FailedCarriers) > 0 {
				printf(cmd.ErrOrStderr(), "carriers without results: %s\n", schedule.JoinSCACs(resp.FailedCarriers))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "origin UN/LOCODE (required)")
	f.StringVar(&opts.to, "to", "", "destination UN/LOCODE (required)")
	f.StringVar(&opts.date, "date", "", "start date, YYYY-MM-DD (default today)")
	f.StringVar(&opts.dateType, "date-type", "Departure", "whether --date bounds departures or arrivals")
	f.IntVar(&opts.searchRange, "range", schedule.DefaultSearchRange, "search window in days")
	f.StringSliceVar(&opts.scacs, "scac", nil, "carrier codes to query (default all configured)")
	f.BoolVar(&opts.directOnly, "direct-only", false, "only direct sailings")
	f.StringVar(&opts.tsp, "tsp", "", "require a transshipment port")
	f.StringVar(&opts.vesselIMO, "vessel-imo", "", "require a vessel IMO number")
	f.StringVar(&opts.service, "service", "", "require a service code or name")
	f.BoolVar(&opts.compact, "compact", false, "print the product without indentation")
	_ = cmd.MarkFlagRequired("from") //nolint:errcheck // flag is defined above
	_ = cmd.MarkFlagRequired("to")   //nolint:errcheck // flag is defined above

	return cmd
}

// query builds the search; directOnlySet distinguishes false from unset.
func (o searchOptions) query(directOnlySet bool) (schedule.Query, error) {
	var errs []error

	start := time.Now().UTC().Truncate(24 * time.Hour)
	if o.date != "" {
		parsed, err := time.Parse(schedule.DateLayout, o.date)
		if err != nil {
			errs = append(errs, fmt.Errorf("--date: expected YYYY-MM-DD, got %q", o.date))
		}
		start = parsed
	}

	dateType, err := schedule.ParseDateType(o.dateType)
	if err != nil {
		errs = append(errs, fmt.Errorf("--date-type: %w", err))
	}

	var scacs []schedule.SCAC
	for _, raw := range o.scacs {
		scac, err := schedule.ParseSCAC(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("--scac: %w", err))
			continue
		}
		scacs = append(scacs, scac)
	}

	q := schedule.Query{
		Origin:      strings.ToUpper(strings.TrimSpace(o.from)),
		Destination: strings.ToUpper(strings.TrimSpace(o.to)),
		StartDate:   start,
		DateType:    dateType,
		SearchRange: o.searchRange,
		SCACs:       scacs,
		Filters: schedule.Filters{
			TransshipmentPort: strings.ToUpper(o.tsp),
			Service:           o.service,
			VesselIMO:         o.vesselIMO,
		},
	}
	if directOnlySet {
		direct := o.directOnly
		q.Filters.DirectOnly = &direct
	}

	if len(errs) == 0 {
		if err := q.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return q, errors.Join(errs...)
}
