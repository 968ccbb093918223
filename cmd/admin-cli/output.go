package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/admin"
	"github.com/Sternrassler/admin-api-client/pkg/pagination"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable writes rows as aligned columns below header.
func (a *app) printTable(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func (a *app) printPromoCodes(codes []admin.PromoCode, state *pagination.State) error {
	if a.jsonOutput() {
		if state == nil {
			return a.printJSON(codes)
		}
		return a.printJSON(struct {
			Items      []admin.PromoCode `json:"items"`
			Pagination pagination.State  `json:"pagination"`
		}{codes, *state})
	}

	rows := make([][]string, 0, len(codes))
	for _, c := range codes {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Code,
			strconv.FormatFloat(c.BonusAmount, 'f', 2, 64),
			fmt.Sprintf("%d/%s", c.UsedCount, maxUses(c.MaxUses)),
			c.Status,
			formatTime(c.ExpiresAt),
		})
	}
	if err := a.printTable([]string{"ID", "CODE", "BONUS", "USES", "STATUS", "EXPIRES"}, rows); err != nil {
		return err
	}
	if state != nil {
		fmt.Fprintf(a.out, "\npage %d of %d (%d total)\n", state.Page, max(state.Pages, 1), state.Total)
	}
	return nil
}

func (a *app) printPromoCode(c *admin.PromoCode) error {
	return a.printPromoCodes([]admin.PromoCode{*c}, nil)
}

func (a *app) printUsages(page *pagination.Page[admin.PromoCodeUsage]) error {
	if a.jsonOutput() {
		return a.printJSON(page)
	}

	rows := make([][]string, 0, len(page.Items))
	for _, u := range page.Items {
		email := ""
		if u.User != nil {
			email = u.User.Email
		}
		rows = append(rows, []string{
			strconv.FormatInt(u.UserID, 10),
			email,
			strconv.FormatFloat(u.BonusAmount, 'f', 2, 64),
			u.UsedAt.Format(time.RFC3339),
		})
	}
	if err := a.printTable([]string{"USER", "EMAIL", "BONUS", "USED AT"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%d total\n", page.Total)
	return nil
}

// maxUses renders 0 as unlimited.
func maxUses(n int) string {
	if n <= 0 {
		return "∞"
	}
	return strconv.Itoa(n)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
