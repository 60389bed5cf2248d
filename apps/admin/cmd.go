package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core/student"
	"github.com/trezcool/formportal/storage/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	stdSvc *student.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]            - run a goose command (up, down, status, version, redo, reset, up-to V, down-to V)")
	fmt.Println("  addstudent -roll ROLL -name NAME  - register a student")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ContinueOnError)
	addStudentRoll := addStudentCmd.String("roll", "", "The student's roll number.")
	addStudentName := addStudentCmd.String("name", "", "The student's name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentRoll == "" || *addStudentName == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(*addStudentRoll, *addStudentName)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(context.Background(), cli.db, args[0], args[1:]...)
}

func (cli *commandLine) addStudent(roll, name string) error {
	std, err := cli.stdSvc.Register(context.Background(), student.NewStudent{RollNumber: roll, Name: name})
	if err != nil {
		return err
	}
	fmt.Printf("student %s (%s) registered\n", std.RollNumber, std.Name)
	return nil
}
