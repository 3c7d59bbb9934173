package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/payrolladmin/payroll/backend/internal/client/api"
	"github.com/payrolladmin/payroll/backend/internal/client/tokenstore"
)

// API is the part of api.Client the commands use.
type API interface {
	Signup(ctx context.Context, email, password string) (api.SignupResult, error)
	Login(ctx context.Context, email, password string) (tokenstore.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*tokenstore.User, error)
	MyCompany(ctx context.Context) (*api.Company, error)
	CreateCompany(ctx context.Context, in api.Company) (api.Company, error)
	Departments(ctx context.Context) ([]api.Department, error)
	CreateDepartment(ctx context.Context, name string, description *string) (api.Department, error)
}

var ErrUsage = errors.New("usage error")

const usage = `usage: payrollctl <command> [flags]

commands:
  signup -email <email>
  login -email <email>
  logout
  whoami
  company
  company-create -name <name> -type <entity type> -pan <pan/vat> -address <address> -phone <phone> [-email <email>]
  departments
  department-create -name <name> [-description <text>]
`

type App struct {
	api    API
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	// password reads a secret; replaced in tests.
	password func() (string, error)
}

func NewApp(client API, in io.Reader, out, errOut io.Writer) *App {
	a := &App{api: client, in: bufio.NewReader(in), out: out, errOut: errOut}
	a.password = a.readPassword
	return a
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup":
		return a.signup(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "company":
		return a.company(ctx)
	case "company-create":
		return a.companyCreate(ctx, rest)
	case "departments":
		return a.departments(ctx)
	case "department-create":
		return a.departmentCreate(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.errOut, "unknown command %q\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *App) credentials(name string, args []string) (string, string, error) {
	fs := a.flags(name)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return "", "", ErrUsage
	}
	if *email == "" {
		fmt.Fprintf(a.errOut, "%s: -email is required\n", name)
		return "", "", ErrUsage
	}
	password, err := a.password()
	if err != nil {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return *email, password, nil
}

func (a *App) signup(ctx context.Context, args []string) error {
	email, password, err := a.credentials("signup", args)
	if err != nil {
		return err
	}
	res, err := a.api.Signup(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\nuser id: %s\n", res.Message, res.User.ID)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	email, password, err := a.credentials("login", args)
	if err != nil {
		return err
	}
	user, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", user.Email)
	if !user.CompanyID.Present() {
		fmt.Fprintln(a.out, "no company yet, run company-create")
	}
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	user, err := a.api.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "id:      %s\nemail:   %s\ncompany: %s\n", user.ID, user.Email, user.CompanyID)
	return nil
}

func (a *App) company(ctx context.Context) error {
	c, err := a.api.MyCompany(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		fmt.Fprintln(a.out, "no company yet")
		return nil
	}
	printCompany(a.out, *c)
	return nil
}

func (a *App) companyCreate(ctx context.Context, args []string) error {
	fs := a.flags("company-create")
	var in api.Company
	var email string
	fs.StringVar(&in.Name, "name", "", "legal name")
	fs.StringVar(&in.EntityType, "type", "", "SOLE_PROPRIETOR, PARTNERSHIP, PVT_LTD, NGO or OTHER")
	fs.StringVar(&in.PanVat, "pan", "", "PAN/VAT number")
	fs.StringVar(&in.Address, "address", "", "registered address")
	fs.StringVar(&in.Phone, "phone", "", "contact phone")
	fs.StringVar(&email, "email", "", "contact email")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if email != "" {
		in.Email = &email
	}
	in.EntityType = strings.ToUpper(in.EntityType)

	created, err := a.api.CreateCompany(ctx, in)
	if err != nil {
		return err
	}
	printCompany(a.out, created)
	return nil
}

func (a *App) departments(ctx context.Context) error {
	list, err := a.api.Departments(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no departments")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, d := range list {
		desc := ""
		if d.Description != nil {
			desc = *d.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, desc)
	}
	return tw.Flush()
}

func (a *App) departmentCreate(ctx context.Context, args []string) error {
	fs := a.flags("department-create")
	name := fs.String("name", "", "department name")
	description := fs.String("description", "", "optional description")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	var desc *string
	if *description != "" {
		desc = description
	}
	d, err := a.api.CreateDepartment(ctx, *name, desc)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created department %s (%s)\n", d.Name, d.ID)
	return nil
}

func printCompany(w io.Writer, c api.Company) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", c.ID)
	fmt.Fprintf(tw, "name\t%s\n", c.Name)
	fmt.Fprintf(tw, "type\t%s\n", c.EntityType)
	fmt.Fprintf(tw, "pan/vat\t%s\n", c.PanVat)
	fmt.Fprintf(tw, "address\t%s\n", c.Address)
	fmt.Fprintf(tw, "phone\t%s\n", c.Phone)
	if c.Email != nil {
		fmt.Fprintf(tw, "email\t%s\n", *c.Email)
	}
	_ = tw.Flush()
}

// readPassword disables echo on a terminal and falls back to a plain line
// read when stdin is piped.
func (a *App) readPassword() (string, error) {
	fmt.Fprint(a.errOut, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(a.errOut)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
