package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ocuweb/classpoints/core/report"
)

func (cli *commandLine) sendSummary() error {
	if cli.conf.InstructorEmail.Address == "" {
		return errors.New("no instructor email configured")
	}
	ctx := context.Background()

	board, err := cli.studentSvc.Leaderboard(ctx)
	if err != nil {
		return err
	}
	roster := make([]string, 0, len(board))
	for _, e := range board {
		roster = append(roster, e.StudentID)
	}
	ov, err := cli.attSvc.Overview(ctx, roster)
	if err != nil {
		return err
	}

	cli.mailSvc.SendMessages(report.BuildDailySummary(cli.conf.InstructorEmail, time.Now().UTC(), board, ov))
	fmt.Fprintf(cli.out, "summary sent to %s\n", cli.conf.InstructorEmail.Address)
	return nil
}
