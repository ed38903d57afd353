package main

import (
	"context"
	"fmt"

	"github.com/ocuweb/classpoints/core/student"
)

// award grants bonus points and records the instructor recognition.
func (cli *commandLine) award(studentID string, points int, reason string) error {
	ctx := context.Background()

	sess, err := cli.studentSvc.Lookup(ctx, studentID)
	if err != nil {
		return err
	}
	eff, err := cli.studentSvc.AwardPoints(ctx, sess, points, reason)
	if err != nil {
		return err
	}
	if _, err := cli.studentSvc.TrackSocialActivity(ctx, sess, "instructor_award"); err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "awarded %d points to %s (now at %d)\n", eff.PointsDelta, sess.StudentID, sess.Progress.Points)
	for _, a := range sess.Progress.Activities {
		if a.Type == student.ActivityAchievementEarned {
			fmt.Fprintf(cli.out, "  unlocked: %s %s\n", a.AchievementIcon, a.AchievementName)
			continue
		}
		break // activities are newest-first; stop at the award entry itself
	}
	return nil
}
