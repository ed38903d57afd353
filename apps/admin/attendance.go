package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) attendance(studentID, date string, late, remove bool) error {
	ctx := context.Background()
	if remove {
		if err := cli.attSvc.Unmark(ctx, studentID, date); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "removed attendance mark for %s on %s\n", studentID, date)
		return nil
	}
	if err := cli.attSvc.Mark(ctx, studentID, date, late); err != nil {
		return err
	}
	status := "present"
	if late {
		status = "late"
	}
	fmt.Fprintf(cli.out, "marked %s %s on %s\n", studentID, status, date)
	return nil
}

func (cli *commandLine) overview() error {
	ctx := context.Background()

	records, err := cli.studentSvc.ListAll(ctx)
	if err != nil {
		return err
	}
	roster := make([]string, 0, len(records))
	for id := range records {
		roster = append(roster, id)
	}

	ov, err := cli.attSvc.Overview(ctx, roster)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "classes held: %d", ov.ClassesHeld)
	if ov.NextClass != "" {
		fmt.Fprintf(cli.out, ", next class: %s", ov.NextClass)
	}
	fmt.Fprintln(cli.out)

	fmt.Fprintf(cli.out, "%-20s %8s %6s %7s %6s\n", "STUDENT", "PRESENT", "LATE", "ABSENT", "RATE")
	for _, so := range ov.Students {
		fmt.Fprintf(cli.out, "%-20s %8d %6d %7d %5.0f%%\n",
			so.StudentID, so.Present, so.Late, so.Absent, so.Rate*100)
	}
	return nil
}
