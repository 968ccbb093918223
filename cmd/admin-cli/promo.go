package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/admin"
	"github.com/Sternrassler/admin-api-client/pkg/client"
	"github.com/Sternrassler/admin-api-client/pkg/pagination"
	"github.com/Sternrassler/admin-api-client/pkg/table"
	"github.com/spf13/cobra"
)

func newPromoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promo",
		Short: "Manage promo codes",
	}
	cmd.AddCommand(
		newPromoListCmd(a),
		newPromoGetCmd(a),
		newPromoCreateCmd(a),
		newPromoUpdateCmd(a),
		newPromoDeleteCmd(a),
		newPromoUsagesCmd(a),
		newPromoExportCmd(a),
		newPromoWatchCmd(a),
	)
	return cmd
}

// addFilterFlags registers --status and --search on cmd.
func addFilterFlags(cmd *cobra.Command, f *admin.PromoFilters) {
	cmd.Flags().StringVar(&f.Status, "status", "", "filter by status (active, disabled)")
	cmd.Flags().StringVar(&f.Search, "search", "", "filter by code substring")
}

// newPromoLoader builds the table loader behind list and watch.
func (a *app) newPromoLoader(filters admin.PromoFilters) *table.Loader[admin.PromoCode, admin.PromoFilters] {
	return table.New(a.api.Promo.TableFetch(), table.Options[admin.PromoFilters]{
		InitialParams: filters,
		PageSize:      a.cfg.Paging.PageSize,
		Debounce:      a.cfg.Paging.Debounce,
		Name:          "promo_codes",
	})
}

func newPromoListCmd(a *app) *cobra.Command {
	var (
		filters  admin.PromoFilters
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List promo codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loader := a.newPromoLoader(filters)
			defer loader.Close()

			if cmd.Flags().Changed("page-size") {
				if err := loader.HandlePageSizeChange(ctx, pageSize); err != nil {
					return err
				}
			} else if err := loader.Load(ctx); err != nil {
				return err
			}
			// The page is clamped against the page count of the first load.
			if page != 1 {
				if err := loader.HandlePageChange(ctx, page); err != nil {
					return err
				}
			}
			// The loader drops cancelled loads silently.
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", client.ErrCanceled, err)
			}

			state := loader.Pagination()
			return a.printPromoCodes(loader.Items(), &state)
		},
	}

	addFilterFlags(cmd, &filters)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", pagination.DefaultPageSize, "items per page")
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid promo code id %q", arg)
	}
	return id, nil
}

func newPromoGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			code, err := a.api.Promo.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printPromoCode(code)
		},
	}
}

// parseExpiry accepts RFC 3339 or a plain date.
func parseExpiry(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid expiry %q: want RFC 3339 or YYYY-MM-DD", s)
}

func newPromoCreateCmd(a *app) *cobra.Command {
	var (
		req     admin.CreatePromoCodeRequest
		expires string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a promo code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.BonusAmount <= 0 {
				return errors.New("--bonus must be > 0")
			}
			exp, err := parseExpiry(expires)
			if err != nil {
				return err
			}
			req.ExpiresAt = exp

			code, err := a.api.Promo.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printPromoCode(code)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Code, "code", "", "code (generated by the server when empty)")
	f.Float64Var(&req.BonusAmount, "bonus", 0, "bonus amount")
	f.IntVar(&req.MaxUses, "max-uses", 0, "maximum redemptions (0 = unlimited)")
	f.StringVar(&expires, "expires", "", "expiry time (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&req.Notes, "notes", "", "internal notes")
	return cmd
}

func newPromoUpdateCmd(a *app) *cobra.Command {
	var (
		code, status, notes, expires string
		bonus                        float64
		maxUses                      int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var req admin.UpdatePromoCodeRequest
			f := cmd.Flags()
			if f.Changed("code") {
				req.Code = &code
			}
			if f.Changed("bonus") {
				req.BonusAmount = &bonus
			}
			if f.Changed("max-uses") {
				req.MaxUses = &maxUses
			}
			if f.Changed("status") {
				if status != admin.PromoStatusActive && status != admin.PromoStatusDisabled {
					return fmt.Errorf("invalid status %q", status)
				}
				req.Status = &status
			}
			if f.Changed("notes") {
				req.Notes = &notes
			}
			if f.Changed("expires") {
				if req.ExpiresAt, err = parseExpiry(expires); err != nil {
					return err
				}
			}

			updated, err := a.api.Promo.Update(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			return a.printPromoCode(updated)
		},
	}

	f := cmd.Flags()
	f.StringVar(&code, "code", "", "new code")
	f.Float64Var(&bonus, "bonus", 0, "new bonus amount")
	f.IntVar(&maxUses, "max-uses", 0, "new maximum redemptions")
	f.StringVar(&status, "status", "", "new status (active, disabled)")
	f.StringVar(&expires, "expires", "", "new expiry time")
	f.StringVar(&notes, "notes", "", "new notes")
	return cmd
}

func newPromoDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := a.api.Promo.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return a.printJSON(resp)
			}
			msg := resp.Message
			if msg == "" {
				msg = fmt.Sprintf("Promo code %d deleted", id)
			}
			fmt.Fprintln(a.out, msg)
			return nil
		},
	}
}

func newPromoUsagesCmd(a *app) *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "usages <id>",
		Short: "List redemptions of a promo code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			usages, err := a.api.Promo.Usages(cmd.Context(), id, page, pageSize)
			if err != nil {
				return err
			}
			return a.printUsages(usages)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", pagination.DefaultPageSize, "items per page")
	return cmd
}

func newPromoExportCmd(a *app) *cobra.Command {
	var filters admin.PromoFilters

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch every promo code matching the filters as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetcher := pagination.NewBatchFetcher(a.api.Promo.Pages(filters), pagination.Config{
				MaxConcurrency: a.cfg.Paging.MaxConcurrency,
				PageSize:       a.cfg.Paging.ExportPageSize,
				Timeout:        a.cfg.API.Timeout,
			})
			codes, err := fetcher.FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			if codes == nil {
				codes = []admin.PromoCode{}
			}
			a.logger.Info().Int("count", len(codes)).Msg("Promo codes exported")
			return a.printJSON(codes)
		},
	}

	addFilterFlags(cmd, &filters)
	return cmd
}
