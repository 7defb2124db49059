package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alex-user-go/hotelsearch/internal/app"
	"github.com/alex-user-go/hotelsearch/internal/config"
	"github.com/alex-user-go/hotelsearch/internal/handler"
	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search/filter"
	"github.com/alex-user-go/hotelsearch/internal/search/store"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "hotelsearch",
		Short:         "Hotel search service with filter reconciliation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newSearchCmd(&configPath),
		newLinkCmd(),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg)
		},
	}
}

// criteriaFlags are the command line form of search criteria.
type criteriaFlags struct {
	destination string
	checkIn     string
	checkOut    string
	rooms       int
	adults      int
	childAges   []int
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.destination, "destination", "d", "", "destination id, or a name to look up")
	cmd.Flags().StringVar(&f.checkIn, "check-in", "", "check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.checkOut, "check-out", "", "check-out date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.rooms, "rooms", 1, "number of rooms")
	cmd.Flags().IntVar(&f.adults, "adults", 2, "number of adults")
	cmd.Flags().IntSliceVar(&f.childAges, "child-ages", nil, "ages of the children, one per child")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("check-in")
	_ = cmd.MarkFlagRequired("check-out")
}

// criteria builds validated criteria for dest.
func (f *criteriaFlags) criteria(dest types.Destination) (types.Criteria, error) {
	checkIn, err := types.ParseDate(f.checkIn)
	if err != nil {
		return types.Criteria{}, fmt.Errorf("check-in: %w", err)
	}
	checkOut, err := types.ParseDate(f.checkOut)
	if err != nil {
		return types.Criteria{}, fmt.Errorf("check-out: %w", err)
	}
	c := types.Criteria{
		Destination: dest,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Occupancy: types.Occupancy{
			Rooms:     f.rooms,
			Adults:    f.adults,
			Children:  len(f.childAges),
			ChildAges: f.childAges,
		},
	}
	return c, c.Validate()
}

// parseDestination reads "7" or "7:Lisbon". ok is false for plain names.
func parseDestination(s string) (types.Destination, bool) {
	idPart, name, _ := strings.Cut(s, ":")
	id, err := strconv.Atoi(strings.TrimSpace(idPart))
	if err != nil {
		return types.Destination{}, false
	}
	return types.Destination{ID: id, Name: strings.TrimSpace(name)}, true
}

// filterFlags are the command line form of a filter patch.
type filterFlags struct {
	sortBy   string
	name     string
	minPrice float64
	maxPrice float64
	stars    []int
	ratings  []int
	boards   []string
	exclude  bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sortBy, "sort", "", "sort order: price-asc or price-desc")
	cmd.Flags().StringVar(&f.name, "name", "", "only hotels whose name contains this text")
	cmd.Flags().Float64Var(&f.minPrice, "min-price", filter.DefaultMinPrice, "minimum total price")
	cmd.Flags().Float64Var(&f.maxPrice, "max-price", filter.DefaultMaxPrice, "maximum total price")
	cmd.Flags().IntSliceVar(&f.stars, "stars", nil, "selected star categories (1-5)")
	cmd.Flags().IntSliceVar(&f.ratings, "ratings", nil, "selected review ratings (1-5)")
	cmd.Flags().StringSliceVar(&f.boards, "boards", nil, "board codes (BB, HB, ...)")
	cmd.Flags().BoolVar(&f.exclude, "exclude-boards", false, "exclude the given boards instead of requiring them")
}

func (f *filterFlags) patch() filter.Patch {
	sortBy := filter.SortOrder(f.sortBy)
	included := !f.exclude
	p := filter.Patch{
		SortBy:    &sortBy,
		NameQuery: &f.name,
		Price:     &filter.PricePatch{Min: &f.minPrice, Max: &f.maxPrice},
	}
	if len(f.stars) > 0 {
		stars := filter.SelectRatings(f.stars)
		p.Stars = &stars
	}
	if len(f.ratings) > 0 {
		ratings := filter.SelectRatings(f.ratings)
		p.Rating = &ratings
	}
	if len(f.boards) > 0 {
		p.Boards = &filter.BoardsPatch{Codes: f.boards, Included: &included}
	}
	return p
}

func newSearchCmd(configPath *string) *cobra.Command {
	var (
		cf criteriaFlags
		ff filterFlags
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a single search against the remote API and print the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := app.NewLogger(cmd.ErrOrStderr(), cfg)
			metrics := obs.NewMetrics(logger)
			source, closeSource := app.NewSource(cfg, metrics, logger)
			defer closeSource()

			dest, ok := parseDestination(cf.destination)
			if !ok {
				found, err := source.LookupDestination(cmd.Context(), cf.destination, 1)
				if err != nil {
					return fmt.Errorf("look up destination: %w", err)
				}
				if len(found) == 0 {
					return fmt.Errorf("%w: %q", providers.ErrDestinationNotFound, cf.destination)
				}
				dest = found[0]
			}
			c, err := cf.criteria(dest)
			if err != nil {
				return err
			}

			s := store.New(source, cfg.Search, metrics, logger)
			defer s.Close()

			if err := s.SetCriteria(c); err != nil {
				return err
			}
			if _, err := s.UpdateFilters(ff.patch()); err != nil {
				return err
			}
			// Filters are part of the search itself; nothing is left to debounce.
			if err := s.Search(cmd.Context()); err != nil {
				return err
			}
			s.FlushFilters()

			st := s.Snapshot()
			if st.Error != "" {
				return errors.New(st.Error)
			}
			return printHotels(cmd.OutOrStdout(), st)
		},
	}
	cf.register(cmd)
	ff.register(cmd)
	return cmd
}

func printHotels(w io.Writer, st store.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTARS\tPRICE")
	for _, h := range st.Displayed {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\n", h.ID, h.Name, h.Rating, h.Price())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d hotels\n", len(st.Displayed), len(st.Fetched))
	return err
}

func newLinkCmd() *cobra.Command {
	var (
		cf      criteriaFlags
		country string
		base    string
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print the shareable results link for a search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, ok := parseDestination(cf.destination)
			if !ok {
				return fmt.Errorf("destination must be an id or id:name, got %q", cf.destination)
			}
			dest.Country.Name = country
			c, err := cf.criteria(dest)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(base, "/")+handler.ShareLink(c))
			return err
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&country, "country", "", "destination country name")
	cmd.Flags().StringVar(&base, "base-url", "", "prefix for the link, e.g. https://example.com")
	return cmd
}
