package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/moderation"
	"github.com/pauljones0/maodevaca/internal/util"
)

var moderationPrompts = map[string]string{
	"approve":   "Aprovar a promoção #%d?",
	"reject":    "Rejeitar a promoção #%d?",
	"dismiss":   "Manter a promoção #%d e descartar a denúncia?",
	"ban-owner": "Banir o autor da promoção #%d?",
	"delete":    "Excluir definitivamente a promoção #%d e seus votos?",
	"edit":      "Salvar as alterações da promoção #%d?",
}

// confirm asks a y/N question on the terminal. Anything but y/yes/s/sim is a no.
func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", question)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "sim":
		return true
	}
	return false
}

func (a *app) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("admin: subcommand required (dashboard, approve, reject, dismiss, ban-owner, delete, edit, ban)")
	}
	sub, args := args[0], args[1:]

	switch sub {
	case "dashboard":
		d, err := a.client.Dashboard(ctx)
		if err != nil {
			return err
		}
		a.printDashboard(d)
		return nil
	case "ban":
		return a.adminBan(ctx, args)
	case "edit":
		return a.adminEdit(ctx, args)
	}

	if _, ok := moderationPrompts[sub]; !ok {
		return fmt.Errorf("admin: unknown subcommand %q", sub)
	}
	fs := flag.NewFlagSet("admin "+sub, flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}
	if !*yes && !a.confirm(fmt.Sprintf(moderationPrompts[sub], id)) {
		return models.ErrNotConfirmed
	}

	var d *moderation.Dashboard
	if sub == "delete" {
		d, err = a.client.DeleteDeal(ctx, id)
	} else {
		d, err = a.client.Moderate(ctx, sub, id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Feito.")
	a.printDashboard(d)
	return nil
}

func (a *app) adminBan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin ban", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("admin ban: user id required")
	}
	userID := fs.Arg(0)
	if !*yes && !a.confirm(fmt.Sprintf("Alternar o banimento do usuário %s?", userID)) {
		return models.ErrNotConfirmed
	}
	d, err := a.client.ToggleBan(ctx, userID)
	if err != nil {
		return err
	}
	for _, u := range d.Users {
		if u.ID == userID {
			state := "ativo"
			if u.IsBanned {
				state = "banido"
			}
			fmt.Fprintf(a.out, "%s agora está %s.\n", u.Email, state)
		}
	}
	return nil
}

// adminEdit loads the deal from the moderation lists, applies the given flags
// and saves every editable field.
func (a *app) adminEdit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("admin edit", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	title := fs.String("title", "", "new title")
	price := fs.String("price", "", "new price")
	store := fs.String("store", "", "new store name")
	link := fs.String("link", "", "new link (saved as given)")
	category := fs.String("category", "", "new category")
	payment := fs.String("payment", "", "new payment method")
	coupon := fs.String("coupon", "", "new coupon code")
	description := fs.String("description", "", "new description")
	status := fs.String("status", "", "pending, approved or rejected")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	dash, err := a.client.Dashboard(ctx)
	if err != nil {
		return err
	}
	deal, ok := findDeal(dash, id)
	if !ok {
		return models.ErrDealNotFound
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&deal.Title, *title)
	set(&deal.StoreName, *store)
	set(&deal.Link, *link)
	set(&deal.Category, *category)
	set(&deal.PaymentMethod, *payment)
	set(&deal.CouponCode, *coupon)
	set(&deal.Description, *description)
	if *status != "" {
		deal.Status = models.Status(*status)
	}
	if *price != "" {
		p, err := util.ParsePrice(*price)
		if err != nil {
			return err
		}
		deal.Price = p
	}

	if !*yes && !a.confirm(fmt.Sprintf(moderationPrompts["edit"], id)) {
		return models.ErrNotConfirmed
	}
	d, err := a.client.EditDeal(ctx, deal)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Promoção atualizada.")
	a.printDashboard(d)
	return nil
}

func findDeal(d *moderation.Dashboard, id int64) (models.Deal, bool) {
	for _, list := range [][]models.Deal{d.Pending, d.Active, d.Reported} {
		for _, deal := range list {
			if deal.ID == id {
				return deal, true
			}
		}
	}
	return models.Deal{}, false
}

func (a *app) printDashboard(d *moderation.Dashboard) {
	if d.RefreshError != "" {
		fmt.Fprintln(a.out, "Aviso: não foi possível recarregar as listas:", d.RefreshError)
		return
	}
	fmt.Fprintf(a.out, "\nPendentes (%d)\n", len(d.Pending))
	for _, deal := range d.Pending {
		fmt.Fprintf(a.out, "  #%d %s  %s  por %s\n", deal.ID, deal.Title, formatBRL(deal.Price), deal.UserEmail)
	}
	fmt.Fprintf(a.out, "Denunciadas (%d)\n", len(d.Reported))
	for _, deal := range d.Reported {
		fmt.Fprintf(a.out, "  #%d %s\n", deal.ID, deal.Title)
	}
	fmt.Fprintf(a.out, "Ativas: %d  Usuários: %d\n", len(d.Active), len(d.Users))
}
