package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/form"
	"github.com/trezcool/formportal/core/portal"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) } // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	portal  *portal.Portal
	notices *portal.NoticeLog
	in      io.Reader
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -roll ROLL -name NAME     - log in and fetch the form")
	fmt.Fprintln(cli.out, "  status                          - show the displayed section and its answers")
	fmt.Fprintln(cli.out, "  set -field ID -value VALUE      - answer a field of the displayed section")
	fmt.Fprintln(cli.out, "  fill                            - answer the displayed section field by field")
	fmt.Fprintln(cli.out, "  next                            - validate the section and move forward")
	fmt.Fprintln(cli.out, "  prev                            - move back")
	fmt.Fprintln(cli.out, "  submit                          - validate the last section and submit")
	fmt.Fprintln(cli.out, "  logout                          - forget the student and their answers")
}

func (cli *commandLine) run(args []string) (err error) {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	defer cli.printNotices()

	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginRoll := loginCmd.String("roll", "", "Your roll number.")
	loginName := loginCmd.String("name", "", "Your name.")

	setCmd := flag.NewFlagSet("set", flag.ContinueOnError)
	setCmd.SetOutput(cli.out)
	setField := setCmd.String("field", "", "The field ID.")
	setValue := setCmd.String("value", "", "The answer.")

	switch args[1] {
	case "login":
		if err = loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err = cli.portal.Login(ctx, portal.LoginRequest{RollNumber: *loginRoll, Name: *loginName}); err != nil {
			return cli.explain(err)
		}
		cli.printNotices()
		return cli.status(ctx)
	case "status":
		return cli.status(ctx)
	case "set":
		if err = setCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setField == "" {
			setCmd.Usage()
			return errHelp
		}
		return cli.set(ctx, *setField, *setValue)
	case "fill":
		return cli.fill(ctx)
	case "next", "prev", "submit":
		return cli.navigate(ctx, args[1])
	case "logout":
		if err = cli.portal.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "Logged out.")
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

// wizard loads the form when needed and returns the wizard of the session.
func (cli *commandLine) wizard(ctx context.Context) (*portal.Wizard, error) {
	switch cli.portal.View() {
	case portal.ViewLogin:
		return nil, portal.ErrNotLoggedIn
	case portal.ViewSubmitted:
		return nil, portal.ErrFormSubmitted
	case portal.ViewUnavailable:
		return nil, form.ErrNoSections
	case portal.ViewLoading:
		if err := cli.portal.LoadForm(ctx); err != nil {
			return nil, err
		}
		if cli.portal.View() == portal.ViewSubmitted {
			return nil, portal.ErrFormSubmitted
		}
	}
	return cli.portal.Wizard(ctx)
}

func (cli *commandLine) status(ctx context.Context) error {
	st := cli.portal.State()
	switch cli.portal.View() {
	case portal.ViewLogin:
		fmt.Fprintln(cli.out, "Not logged in.")
		return nil
	case portal.ViewSubmitted:
		fmt.Fprintf(cli.out, "Logged in as %s (%s).\n", st.User.Name, st.User.RollNumber)
		fmt.Fprintln(cli.out, "Your form has been submitted. Thank you!")
		return nil
	case portal.ViewUnavailable:
		fmt.Fprintf(cli.out, "Logged in as %s (%s).\n", st.User.Name, st.User.RollNumber)
		_ = cli.explain(form.ErrNoSections)
		return nil
	}

	w, err := cli.wizard(ctx)
	if err != nil {
		return cli.explain(err)
	}
	fmt.Fprintf(cli.out, "Logged in as %s (%s).\n", st.User.Name, st.User.RollNumber)
	fmt.Fprintf(cli.out, "%s\n", w.Schema().FormTitle)
	cli.printSection(w)
	return nil
}

func (cli *commandLine) printSection(w *portal.Wizard) {
	pos := w.Position()
	sc := w.Section()
	fmt.Fprintln(cli.out, pos)
	if pos.Section.Description != "" {
		fmt.Fprintf(cli.out, "  %s\n", pos.Section.Description)
	}

	errs := sc.Errors()
	for _, fld := range pos.Section.Fields {
		ctrl := form.ControlFor(fld)
		label := fld.Label
		if fld.Required {
			label += " *"
		}
		fmt.Fprintf(cli.out, "  %-20s %s: %s\n", fld.FieldID, label, ctrl.Format(sc.Value(fld.FieldID)))
		if msg := errs.Get(fld.FieldID); msg != "" {
			fmt.Fprintf(cli.out, "  %-20s ! %s\n", "", msg)
		}
	}
}

func (cli *commandLine) set(ctx context.Context, fieldID, raw string) error {
	w, err := cli.wizard(ctx)
	if err != nil {
		return cli.explain(err)
	}
	fld, ok := w.Section().Section().Field(fieldID)
	if !ok {
		return errors.Wrap(portal.ErrFieldNotInSection, fieldID)
	}
	val, err := form.ControlFor(fld).Parse(raw)
	if err != nil {
		return errors.Wrap(err, fieldID)
	}
	if err = w.Edit(ctx, fieldID, val); err != nil {
		return err
	}
	cli.printSection(w)
	return nil
}

// fill prompts for every field of the displayed section. Blank input keeps the current answer.
func (cli *commandLine) fill(ctx context.Context) error {
	w, err := cli.wizard(ctx)
	if err != nil {
		return cli.explain(err)
	}
	interactive := isTerminalFunc()
	scanner := bufio.NewScanner(cli.in)
	sc := w.Section()

	for _, fld := range sc.Section().Fields {
		ctrl := form.ControlFor(fld)
		for {
			if interactive {
				fmt.Fprintf(cli.out, "%s %s [%s]: ", fld.Label, hint(ctrl), ctrl.Format(sc.Value(fld.FieldID)))
			}
			if !scanner.Scan() {
				if err = scanner.Err(); err != nil {
					return err
				}
				cli.printSection(w)
				return nil
			}
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				break
			}
			val, err := ctrl.Parse(line)
			if err != nil {
				if !interactive {
					return errors.Wrap(err, fld.FieldID)
				}
				fmt.Fprintf(cli.out, "  ! %v\n", err)
				continue
			}
			if err = w.Edit(ctx, fld.FieldID, val); err != nil {
				return err
			}
			break
		}
	}
	cli.printSection(w)
	return nil
}

func hint(ctrl form.Control) string {
	switch ctrl.Kind {
	case form.ControlDate:
		return "(YYYY-MM-DD)"
	case form.ControlToggle:
		return "(yes/no)"
	case form.ControlMultiLine:
		return `(\n for new lines)`
	case form.ControlSelect:
		values := make([]string, 0, len(ctrl.Field.Options))
		for _, opt := range ctrl.Field.Options {
			values = append(values, opt.Value)
		}
		return "(" + strings.Join(values, "/") + ")"
	default:
		return ""
	}
}

func (cli *commandLine) navigate(ctx context.Context, cmd string) error {
	w, err := cli.wizard(ctx)
	if err != nil {
		return cli.explain(err)
	}
	switch cmd {
	case "next":
		err = w.Next(ctx)
	case "prev":
		err = w.Previous(ctx)
	default:
		err = w.Submit(ctx)
	}
	if err != nil {
		if core.IsValidationError(err) {
			cli.printSection(w)
		}
		return err
	}

	if w.IsSubmitted() {
		fmt.Fprintln(cli.out, "Form submitted. Thank you!")
		return nil
	}
	cli.printSection(w)
	return nil
}

func (cli *commandLine) explain(err error) error {
	switch errors.Cause(err) {
	case portal.ErrNotLoggedIn:
		fmt.Fprintln(cli.out, "Please log in first: login -roll ROLL -name NAME")
	case portal.ErrFormSubmitted:
		fmt.Fprintln(cli.out, "Your form has already been submitted.")
	case form.ErrNoSections:
		fmt.Fprintln(cli.out, "This form has no sections and cannot be filled. Please contact the administrator.")
	}
	return err
}

func (cli *commandLine) printNotices() {
	for _, n := range cli.notices.Drain() {
		prefix := "*"
		if n.Destructive {
			prefix = "!"
		}
		fmt.Fprintf(cli.out, "%s %s: %s\n", prefix, n.Title, n.Description)
	}
}
