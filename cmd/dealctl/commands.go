package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pauljones0/maodevaca/internal/listing"
	"github.com/pauljones0/maodevaca/internal/models"
	"github.com/pauljones0/maodevaca/internal/util"
	"github.com/pauljones0/maodevaca/internal/vote"
)

const refParam, refValue = "ref", "maodevaca_app"

// parseWithID parses flags, takes the first positional argument as a deal ID
// and parses any flags that follow it.
func parseWithID(fs *flag.FlagSet, args []string) (int64, error) {
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if fs.NArg() == 0 {
		return 0, fmt.Errorf("%s: deal id required", fs.Name())
	}
	id, err := util.ParseDealID(fs.Arg(0))
	if err != nil {
		return 0, err
	}
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return 0, err
	}
	return id, nil
}

func formatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	return "R$ " + strings.Replace(s, ".", ",", 1)
}

func badges(d models.Deal) string {
	var b []string
	if d.ShowsHotBadge() {
		b = append(b, "🔥 QUENTE")
	}
	if d.ShowsDiscountBadge() {
		b = append(b, fmt.Sprintf("-%d%%", d.DiscountPercent()))
	}
	if d.Reported() {
		b = append(b, "⚠ EM REVISÃO")
	}
	return strings.Join(b, " ")
}

func printDeals(w io.Writer, deals []models.Deal) {
	if len(deals) == 0 {
		fmt.Fprintln(w, "Nenhuma promoção encontrada.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTEMP\tPREÇO\tTÍTULO\tLOJA\tCATEGORIA\t")
	for _, d := range deals {
		fmt.Fprintf(tw, "#%d\t%d°\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Temperature, formatBRL(d.Price), d.Title, d.StoreName, d.Category, badges(d))
	}
	tw.Flush()
}

func printDeal(w io.Writer, d models.Deal) {
	fmt.Fprintf(w, "#%d %s\n", d.ID, d.Title)
	price := formatBRL(d.Price)
	if d.OriginalPrice != nil && *d.OriginalPrice > d.Price {
		price += " (de " + formatBRL(*d.OriginalPrice) + ")"
	}
	fmt.Fprintf(w, "  Preço:      %s %s\n", price, badges(d))
	fmt.Fprintf(w, "  Loja:       %s\n", d.StoreName)
	fmt.Fprintf(w, "  Categoria:  %s\n", d.Category)
	fmt.Fprintf(w, "  Pagamento:  %s\n", d.PaymentMethod)
	fmt.Fprintf(w, "  Temperatura: %d°\n", d.Temperature)
	if d.CouponCode != "" {
		fmt.Fprintf(w, "  Cupom:      %s\n", d.CouponCode)
	}
	if d.Description != "" {
		fmt.Fprintf(w, "  %s\n", d.Description)
	}
	fmt.Fprintf(w, "  Link:       %s\n", util.AppendQueryParam(d.Link, refParam, refValue))
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	search := fs.String("q", "", "search title, store and category")
	category := fs.String("category", "", "category, or a store name fragment")
	payment := fs.String("payment", "", "payment method")
	sortKey := fs.String("sort", "NEWEST", "HOTTEST or NEWEST")
	if err := fs.Parse(args); err != nil {
		return err
	}

	deals, err := a.client.ListDeals(ctx, "", "", "", "")
	if err != nil {
		return err
	}
	printDeals(a.out, listing.Apply(deals, listing.Filter{
		Search:   *search,
		Category: *category,
		Payment:  *payment,
		Sort:     listing.ParseSort(*sortKey),
	}))
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := parseWithID(flag.NewFlagSet("show", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	d, err := a.client.GetDeal(ctx, id)
	if err != nil {
		return err
	}
	printDeal(a.out, *d)
	return nil
}

func (a *app) vote(ctx context.Context, args []string) error {
	id, err := parseWithID(flag.NewFlagSet("vote", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	d, err := a.client.GetDeal(ctx, id)
	if err != nil {
		return err
	}

	c := vote.NewController(*d, a.client)
	before := c.Temperature()
	if err := c.Vote(ctx, a.caller()); err != nil {
		fmt.Fprintf(a.out, "#%d continua com %d°\n", id, c.Temperature())
		return err
	}
	fmt.Fprintf(a.out, "#%d: %d° → %d°", id, before, c.Temperature())
	if models.IsHotTemperature(c.Temperature()) {
		fmt.Fprint(a.out, " 🔥")
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	title := fs.String("title", "", "deal title")
	price := fs.String("price", "", "price, e.g. 1.299,90")
	original := fs.String("original", "", "original price")
	store := fs.String("store", "", "store name")
	link := fs.String("link", "", "product link")
	category := fs.String("category", "", "category")
	payment := fs.String("payment", "", "payment method")
	coupon := fs.String("coupon", "", "coupon code")
	image := fs.String("image", "", "image URL")
	description := fs.String("description", "", "description")
	useAI := fs.Bool("ai", false, "draft description and category with the assistant")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := util.ParsePrice(*price)
	if err != nil {
		return err
	}
	input := models.NewDeal{
		Title:         *title,
		Price:         p,
		StoreName:     *store,
		Link:          *link,
		Category:      *category,
		PaymentMethod: *payment,
		CouponCode:    *coupon,
		ImageURL:      *image,
		Description:   *description,
	}
	if *original != "" {
		op, err := util.ParsePrice(*original)
		if err != nil {
			return err
		}
		input.OriginalPrice = &op
	}

	if *useAI {
		analysis, err := a.client.Describe(ctx, input.Title, input.Price, input.StoreName)
		if err != nil {
			return err
		}
		if input.Description == "" {
			input.Description = analysis.Description
		}
		if input.Category == "" {
			input.Category = analysis.Category
		}
		verdict := "boa"
		if !analysis.IsDealGood {
			verdict = "fraca"
		}
		fmt.Fprintf(a.out, "Assistente: oferta %s (nota %d/100)\n", verdict, analysis.Score)
	}

	d, err := a.client.CreateDeal(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Promoção #%d enviada para moderação.\n", d.ID)
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	id, err := parseWithID(flag.NewFlagSet("report", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	if err := a.client.ReportExpired(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Obrigado! A promoção #%d será revisada.\n", id)
	return nil
}

func credentialFlags(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "account e-mail")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *email == "" {
		return "", "", errors.New("--email is required")
	}
	return *email, *password, nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	email, password, err := credentialFlags("signup", args)
	if err != nil {
		return err
	}
	if err := a.client.SignUp(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Conta criada! Verifique seu e-mail e depois rode dealctl login.")
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	email, password, err := credentialFlags("login", args)
	if err != nil {
		return err
	}
	s, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	saved := savedSession{Token: s.Token, Identity: *s.Identity, IsAdmin: s.Profile.IsAdmin()}
	if err := saveSession(saved); err != nil {
		return err
	}
	a.session = &saved
	fmt.Fprintf(a.out, "Bem-vindo, %s!\n", s.Identity.Email)
	if s.Profile != nil && s.Profile.IsBanned {
		fmt.Fprintln(a.out, "Atenção: sua conta está suspensa.")
	}
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	email, _, err := credentialFlags("reset", args)
	if err != nil {
		return err
	}
	if err := a.client.ResetPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Se o e-mail estiver cadastrado, você receberá um link de redefinição.")
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if a.session != nil {
		if err := a.client.SignOut(ctx); err != nil {
			fmt.Fprintln(a.out, "Aviso: o servidor não confirmou o logout:", describeError(err))
		}
	}
	a.session = nil
	if err := clearSession(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sessão encerrada.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if a.session == nil {
		return models.ErrNotAuthenticated
	}
	s, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)", s.Identity.Email, s.Identity.UserID)
	if s.Profile != nil {
		fmt.Fprintf(a.out, " papel=%s", s.Profile.Role)
		if s.Profile.IsBanned {
			fmt.Fprint(a.out, " SUSPENSO")
		}
	}
	fmt.Fprintln(a.out)
	return nil
}
