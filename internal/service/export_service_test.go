package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/scoresheet-api/internal/models"
	"github.com/noah-isme/scoresheet-api/pkg/jobs"
	"github.com/noah-isme/scoresheet-api/pkg/storage"
)

type mockExportRepo struct {
	jobsByID  map[string]*models.ExportJob
	completed map[string]string
	failed    map[string]string
}

func newMockExportRepo() *mockExportRepo {
	return &mockExportRepo{
		jobsByID:  map[string]*models.ExportJob{},
		completed: map[string]string{},
		failed:    map[string]string{},
	}
}

func (m *mockExportRepo) Insert(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = "exp-created"
	}
	if job.Status == "" {
		job.Status = models.ExportStatusPending
	}
	m.jobsByID[job.ID] = job
	return nil
}

func (m *mockExportRepo) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobsByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snapshot := *job
	return &snapshot, nil
}

func (m *mockExportRepo) MarkCompleted(ctx context.Context, id, filePath string) error {
	m.completed[id] = filePath
	if job, ok := m.jobsByID[id]; ok {
		job.Status = models.ExportStatusCompleted
		job.FilePath = filePath
	}
	return nil
}

func (m *mockExportRepo) MarkFailed(ctx context.Context, id, reason string) error {
	m.failed[id] = reason
	if job, ok := m.jobsByID[id]; ok {
		job.Status = models.ExportStatusFailed
		job.Error = reason
	}
	return nil
}

func newExportService(t *testing.T, repo *mockExportRepo, groups *mockGroupRepo, queue *mockQueue) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("test-secret", time.Hour)
	return NewExportService(
		repo, groups,
		&mockCriteriaLister{criteria: defaultScale()},
		store, signer, queue,
		validator.New(), zap.NewNop(),
	)
}

func TestExportServiceEnqueue(t *testing.T) {
	repo := newMockExportRepo()
	queue := &mockQueue{}
	svc := newExportService(t, repo, &mockGroupRepo{group: scoredGroup()}, queue)

	job, err := svc.Enqueue(context.Background(), "g1", models.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusPending, job.Status)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeScoresheetExport, queue.jobs[0].Type)
	assert.Equal(t, job.ID, queue.jobs[0].Payload)
}

func TestExportServiceEnqueueRejectsUnknownFormat(t *testing.T) {
	svc := newExportService(t, newMockExportRepo(), &mockGroupRepo{group: scoredGroup()}, &mockQueue{})

	_, err := svc.Enqueue(context.Background(), "g1", models.CreateExportRequest{Format: "xlsx"})
	require.Error(t, err)
}

func TestExportServiceHandleJobRendersCSV(t *testing.T) {
	repo := newMockExportRepo()
	svc := newExportService(t, repo, &mockGroupRepo{group: scoredGroup()}, &mockQueue{})

	job, err := svc.Enqueue(context.Background(), "g1", models.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: job.ID, Type: JobTypeScoresheetExport, Payload: job.ID}))

	path, ok := repo.completed[job.ID]
	require.True(t, ok, "job should complete")
	assert.Equal(t, "g1/"+job.ID+".csv", path)
}

func TestExportServiceHandleJobMissingGroupMarksFailed(t *testing.T) {
	repo := newMockExportRepo()
	svc := newExportService(t, repo, &mockGroupRepo{}, &mockQueue{})

	job := &models.ExportJob{ID: "exp1", GroupID: "ghost", Format: "csv", Status: models.ExportStatusPending}
	require.NoError(t, repo.Insert(context.Background(), job))

	// A vanished group is terminal; the handler must not ask for a retry.
	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "exp1", Payload: "exp1"}))
	assert.Contains(t, repo.failed["exp1"], "no longer exists")
}

func TestExportServiceStatusAndDownloadRoundTrip(t *testing.T) {
	repo := newMockExportRepo()
	svc := newExportService(t, repo, &mockGroupRepo{group: scoredGroup()}, &mockQueue{})

	job, err := svc.Enqueue(context.Background(), "g1", models.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: job.ID, Payload: job.ID}))

	completed, token, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusCompleted, completed.Status)
	require.NotEmpty(t, token, "completed exports carry a download token")

	file, downloaded, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, job.ID, downloaded.ID)

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportServiceDownloadRejectsBadToken(t *testing.T) {
	svc := newExportService(t, newMockExportRepo(), &mockGroupRepo{group: scoredGroup()}, &mockQueue{})

	_, _, err := svc.Download(context.Background(), "not-a-token")
	require.Error(t, err)
}

func TestBuildSheetLayout(t *testing.T) {
	group := scoredGroup()
	group.Learners[0].Scores["total"] = models.Numeric(85)
	group.Learners[0].Scores["final"] = models.GradeLabel("B")

	criteria := []models.GradingCriterion{
		{Grade: "A", MinScore: 90, Color: "#22c55e"},
		{Grade: "B", MinScore: 80, Color: "#84cc16"},
	}
	sheet := BuildSheet(group, criteria)

	assert.Equal(t, "Period 1", sheet.Title)
	assert.Equal(t, []string{"Learner ID", "Name", "Homework", "Exam", "Total", "Final"}, sheet.Headers)

	require.Len(t, sheet.Rows, 1)
	row := sheet.Rows[0]
	assert.Equal(t, "L001", row[0].Text)
	assert.Equal(t, "Ada", row[1].Text)
	assert.Equal(t, "40", row[2].Text)
	assert.Equal(t, "85", row[4].Text)
	assert.Equal(t, "B", row[5].Text)
	assert.Equal(t, "#84cc16", row[5].Fill, "grade cells carry their criterion color")
}

func TestBuildSheetUnsetCellsAreEmpty(t *testing.T) {
	group := scoredGroup()
	group.Learners[0].Scores = models.ScoreMap{}

	sheet := BuildSheet(group, defaultScale())
	row := sheet.Rows[0]
	for i := 2; i < len(row); i++ {
		assert.Empty(t, row[i].Text)
	}
}
