package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/attendance"
	"github.com/ocuweb/classpoints/core/student"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf       *core.Config
	studentSvc *student.Service
	attSvc     *attendance.Service
	mailSvc    core.EmailService
	db         *sqlx.DB
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  liststudents - print the class leaderboard")
	fmt.Fprintln(cli.out, "  award -student ID -points N [-reason TEXT] - grant bonus points")
	fmt.Fprintln(cli.out, "  attendance -student ID -date YYYY-MM-DD [-late] [-remove] - mark or unmark attendance")
	fmt.Fprintln(cli.out, "  overview - print the attendance overview")
	fmt.Fprintln(cli.out, "  sendsummary - email the instructor the daily class summary")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	awardCmd := flag.NewFlagSet("award", flag.ExitOnError)
	awardStudent := awardCmd.String("student", "", "The student's id.")
	awardPoints := awardCmd.Int("points", 0, "The number of points to grant.")
	awardReason := awardCmd.String("reason", "instructor award", "Why the points were granted.")

	attendanceCmd := flag.NewFlagSet("attendance", flag.ExitOnError)
	attendanceStudent := attendanceCmd.String("student", "", "The student's id.")
	attendanceDate := attendanceCmd.String("date", "", "The class date (YYYY-MM-DD).")
	attendanceLate := attendanceCmd.Bool("late", false, "Mark the student late.")
	attendanceRemove := attendanceCmd.Bool("remove", false, "Remove the mark instead.")

	switch args[1] {
	case "liststudents":
		return cli.listStudents()
	case "award":
		if err := awardCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *awardStudent == "" || *awardPoints <= 0 {
			awardCmd.Usage()
			return errHelp
		}
		return cli.award(*awardStudent, *awardPoints, *awardReason)
	case "attendance":
		if err := attendanceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *attendanceStudent == "" || *attendanceDate == "" {
			attendanceCmd.Usage()
			return errHelp
		}
		return cli.attendance(*attendanceStudent, *attendanceDate, *attendanceLate, *attendanceRemove)
	case "overview":
		return cli.overview()
	case "sendsummary":
		return cli.sendSummary()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
