package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) listStudents() error {
	entries, err := cli.studentSvc.Leaderboard(context.Background())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cli.out, "no students yet")
		return nil
	}

	fmt.Fprintf(cli.out, "%-4s %-20s %8s %7s %7s %9s\n", "#", "STUDENT", "POINTS", "STREAK", "BADGES", "LECTURES")
	for _, e := range entries {
		fmt.Fprintf(cli.out, "%-4d %-20s %8d %7d %7d %9d\n",
			e.Rank, e.StudentID, e.Points, e.Streak, e.Achievements, e.LecturesViewed)
	}
	return nil
}
