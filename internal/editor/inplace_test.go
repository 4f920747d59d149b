package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/export"
)

type fakeRepo struct {
	mu      sync.Mutex
	doc     cv.Document
	getErr  error
	saveErr error
	saved   []cv.Document

	saveStarted chan struct{}
	saveRelease chan struct{}
}

func (r *fakeRepo) GetCV(_ context.Context, id string) (cv.Document, error) {
	r.mu.Lock()
	getErr := r.getErr
	r.mu.Unlock()
	if getErr != nil {
		return cv.Document{}, getErr
	}
	d := r.doc.Clone()
	d.ID = id
	return d, nil
}

func (r *fakeRepo) UpdateCV(_ context.Context, _ string, doc cv.Document) (cv.Document, error) {
	if r.saveStarted != nil {
		r.saveStarted <- struct{}{}
		<-r.saveRelease
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, doc)
	if r.saveErr != nil {
		return cv.Document{}, r.saveErr
	}
	return doc, nil
}

type fakeExporter struct {
	err      error
	exported []cv.Document
	started  chan struct{}
	release  chan struct{}
}

func (e *fakeExporter) Export(_ context.Context, doc cv.Document) (*export.Artifact, error) {
	if e.started != nil {
		e.started <- struct{}{}
		<-e.release
	}
	e.exported = append(e.exported, doc)
	if e.err != nil {
		return nil, e.err
	}
	return &export.Artifact{Filename: export.Filename(doc), Pages: 1}, nil
}

func storedDocument() cv.Document {
	doc := cv.New()
	doc.Basic = cv.Basic{Name: "Ada", Email: "ada@example.com"}
	doc.Skills = []cv.Record{{"name": "Go", "percentage": "90"}}
	return doc
}

func TestInPlaceLoadNotFound(t *testing.T) {
	repo := &fakeRepo{getErr: &messageError{msg: "CV not found"}}
	repo.getErr = errors.Join(cv.ErrNotFound, repo.getErr)

	e, err := Open(context.Background(), "missing", repo, nil, discardLogger())
	require.Error(t, err)
	assert.Equal(t, StateNotFound, e.State())
	assert.ErrorIs(t, e.SetField(cv.GroupBasic, "name", "x"), ErrNotLoaded)
	assert.ErrorIs(t, e.Save(context.Background()), ErrNotLoaded)
}

func TestInPlaceLoadFailure(t *testing.T) {
	e, err := Open(context.Background(), "a", &fakeRepo{getErr: errors.New("dial tcp: refused")}, nil, discardLogger())
	require.Error(t, err)
	assert.Equal(t, StateFailed, e.State())
	assert.Equal(t, "Failed to load CV", e.Advisory())
}

func TestInPlaceLoadRetryAfterFailure(t *testing.T) {
	repo := &fakeRepo{doc: storedDocument(), getErr: errors.New("dial tcp: refused")}
	e, err := Open(context.Background(), "a", repo, nil, discardLogger())
	require.Error(t, err)
	require.Equal(t, StateFailed, e.State())

	repo.mu.Lock()
	repo.getErr = nil
	repo.mu.Unlock()

	require.NoError(t, e.Load(context.Background()))
	assert.Equal(t, StateReady, e.State())
	assert.Empty(t, e.Advisory())
	assert.Equal(t, "Ada", e.Document().Basic.Name)

	// 已就绪后不允许重复加载
	assert.ErrorIs(t, e.Load(context.Background()), ErrBusy)
}

func TestInPlaceRejectsEditsWhileSaving(t *testing.T) {
	repo := &fakeRepo{
		doc:         storedDocument(),
		saveStarted: make(chan struct{}),
		saveRelease: make(chan struct{}),
	}
	e, err := Open(context.Background(), "a", repo, nil, discardLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Save(context.Background()) }()
	<-repo.saveStarted

	assert.Equal(t, StateSaving, e.State())
	assert.ErrorIs(t, e.SetField(cv.GroupBasic, "name", "Grace"), ErrBusy)
	_, addErr := e.Section(cv.SectionSkills).Add()
	assert.ErrorIs(t, addErr, ErrBusy)

	close(repo.saveRelease)
	require.NoError(t, <-done)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "Ada", repo.saved[0].Basic.Name)
}

func TestInPlaceTabsAreRandomAccess(t *testing.T) {
	e, err := Open(context.Background(), "a", &fakeRepo{doc: storedDocument()}, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, e.SelectTab(StepDesign))
	assert.Equal(t, StepDesign, e.Tab())
	require.NoError(t, e.SelectTab(StepEducation))
	assert.Equal(t, StepEducation, e.Tab())

	// 标签切换不追加记录
	assert.Empty(t, e.Section(cv.SectionEducation).Items())
	assert.Error(t, e.SelectTab(Step(42)))
}

func TestInPlaceSaveClosesSession(t *testing.T) {
	repo := &fakeRepo{doc: storedDocument()}
	e, err := Open(context.Background(), "a", repo, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, e.SetField(cv.GroupBasic, "name", "Grace"))
	require.NoError(t, e.Save(context.Background()))

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "Grace", repo.saved[0].Basic.Name)
	assert.Equal(t, StateClosed, e.State())
	assert.ErrorIs(t, e.SetField(cv.GroupBasic, "name", "x"), ErrSessionClosed)
}

func TestInPlaceSaveFailureIsAdvisory(t *testing.T) {
	repo := &fakeRepo{doc: storedDocument(), saveErr: &messageError{msg: "Server error"}}
	e, err := Open(context.Background(), "a", repo, nil, discardLogger())
	require.NoError(t, err)
	require.NoError(t, e.SetField(cv.GroupBasic, "intro", "Hello"))

	require.Error(t, e.Save(context.Background()))
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, "Server error", e.Advisory())
	assert.Equal(t, "Hello", e.Document().Basic.Intro)

	e.DismissAdvisory()
	assert.Empty(t, e.Advisory())

	repo.saveErr = nil
	require.NoError(t, e.Save(context.Background()))
	assert.Len(t, repo.saved, 2)
}

func TestInPlaceSaveRejectsInvalidDocumentLocally(t *testing.T) {
	stored := storedDocument()
	stored.Social = []cv.Record{{"platform": "Site", "link": "example.com"}}
	repo := &fakeRepo{doc: stored}
	e, err := Open(context.Background(), "a", repo, nil, discardLogger())
	require.NoError(t, err)

	err = e.Save(context.Background())
	assert.True(t, cv.IsValidation(err))
	assert.Empty(t, repo.saved)
	assert.Equal(t, "Invalid URL format for social link.", e.Advisory())
	assert.Equal(t, StateReady, e.State())
}

func TestInPlaceExportUsesSnapshot(t *testing.T) {
	exp := &fakeExporter{started: make(chan struct{}), release: make(chan struct{})}
	e, err := Open(context.Background(), "a", &fakeRepo{doc: storedDocument()}, exp, discardLogger())
	require.NoError(t, err)

	done := make(chan *export.Artifact)
	go func() {
		artifact, _ := e.Export(context.Background())
		done <- artifact
	}()
	<-exp.started

	assert.Equal(t, StateExporting, e.State())
	require.NoError(t, e.SetField(cv.GroupBasic, "name", "Changed"))
	_, err = e.Export(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(exp.release)
	artifact := <-done
	require.NotNil(t, artifact)
	assert.Equal(t, "Ada.pdf", artifact.Filename)
	assert.Equal(t, "Ada", exp.exported[0].Basic.Name)
	assert.Equal(t, "Changed", e.Document().Basic.Name)
	assert.Equal(t, StateReady, e.State())
}

func TestInPlaceExportFailure(t *testing.T) {
	exp := &fakeExporter{err: &export.Error{Stage: export.StageRasterize, Err: errors.New("target closed")}}
	e, err := Open(context.Background(), "a", &fakeRepo{doc: storedDocument()}, exp, discardLogger())
	require.NoError(t, err)

	_, err = e.Export(context.Background())
	require.Error(t, err)
	assert.Equal(t, export.FailureMessage, e.Advisory())
	assert.Equal(t, StateReady, e.State())
}

func TestInPlaceSectionEditing(t *testing.T) {
	e, err := Open(context.Background(), "a", &fakeRepo{doc: storedDocument()}, nil, discardLogger())
	require.NoError(t, err)

	skills := e.Section(cv.SectionSkills)
	n, err := skills.Add()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, skills.UpdateAt(1, "name", "SQL"))
	assert.True(t, cv.IsValidation(skills.UpdateAt(1, "percentage", "101")))
	assert.ErrorIs(t, skills.UpdateAt(5, "name", "x"), cv.ErrIndexOutOfRange)

	require.NoError(t, skills.RemoveAt(0))
	items := skills.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "SQL", items[0].Get("name"))
	assert.Equal(t, []string{"name", "percentage"}, skills.Fields())
}
