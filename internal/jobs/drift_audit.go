package jobs

import (
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/telemetry/metrics"
	"alcyxob/gym-app/internal/telemetry/tracing"
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const driftAuditTimeout = time.Minute

// ProgramDrift is one program whose stored enrollment counter disagrees with
// the number of enrollment records.
type ProgramDrift struct {
	ProgramID primitive.ObjectID
	Title     string
	Stored    int64
	Counted   int64
}

func (d ProgramDrift) Delta() int64 {
	if d.Stored > d.Counted {
		return d.Stored - d.Counted
	}
	return d.Counted - d.Stored
}

type DriftReport struct {
	ProgramsChecked int
	Drifted         []ProgramDrift
	TotalDrift      int64 // sum of |stored - counted|
}

// DriftAuditor compares each program's totalEnrollments with the counted
// enrollments. It only reports; the counter is never rewritten because it
// counts enrollments ever made, including ones that were later removed.
type DriftAuditor struct {
	programRepo    repository.ProgramRepository
	enrollmentRepo repository.EnrollmentRepository
	metrics        *metrics.Manager
}

func NewDriftAuditor(
	programRepo repository.ProgramRepository,
	enrollmentRepo repository.EnrollmentRepository,
	metricsManager *metrics.Manager,
) *DriftAuditor {
	return &DriftAuditor{
		programRepo:    programRepo,
		enrollmentRepo: enrollmentRepo,
		metrics:        metricsManager,
	}
}

// Schedule registers the audit on c. An empty schedule leaves it unscheduled.
func (a *DriftAuditor) Schedule(c *cron.Cron, schedule string) error {
	if schedule == "" {
		log.Info("[DRIFT-AUDIT] schedule empty, audit disabled")
		return nil
	}
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), driftAuditTimeout)
		defer cancel()
		if _, err := a.Run(ctx); err != nil {
			log.WithError(err).Error("[DRIFT-AUDIT] run failed")
		}
	})
	if err != nil {
		return err
	}
	log.WithField("schedule", schedule).Info("[DRIFT-AUDIT] scheduled")
	return nil
}

func (a *DriftAuditor) Run(ctx context.Context) (_ *DriftReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "jobs.driftAudit.run")
	defer tracing.EndSpanWithErrCheck(span, &err)

	defer func(begin time.Time) {
		a.metrics.HistDriftAuditDuration.Observe(time.Since(begin).Seconds())
	}(time.Now())

	programs, err := a.programRepo.List(ctx, repository.ProgramFilter{})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(programs))
	for _, p := range programs {
		ids = append(ids, p.ID)
	}
	counted, err := a.enrollmentRepo.CountByProgram(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := &DriftReport{ProgramsChecked: len(programs)}
	for _, p := range programs {
		drift := ProgramDrift{ProgramID: p.ID, Title: p.Title, Stored: p.TotalEnrollments, Counted: counted[p.ID]}
		if drift.Delta() == 0 {
			continue
		}
		report.Drifted = append(report.Drifted, drift)
		report.TotalDrift += drift.Delta()
		log.WithFields(log.Fields{
			"program_id": p.ID.Hex(),
			"stored":     drift.Stored,
			"counted":    drift.Counted,
		}).Warn("[DRIFT-AUDIT] enrollment counter drift")
	}

	a.metrics.GaugeEnrollmentDrift.Set(float64(report.TotalDrift))
	a.metrics.GaugeDriftedPrograms.Set(float64(len(report.Drifted)))
	log.WithFields(log.Fields{
		"programs": report.ProgramsChecked,
		"drifted":  len(report.Drifted),
		"total":    report.TotalDrift,
	}).Info("[DRIFT-AUDIT] finished")
	return report, nil
}
