package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/export"
)

// Repository 是就地编辑器需要的持久化接口。
// 目标不存在时 GetCV 返回的错误须满足 errors.Is(err, cv.ErrNotFound)。
type Repository interface {
	GetCV(ctx context.Context, id string) (cv.Document, error)
	UpdateCV(ctx context.Context, id string, doc cv.Document) (cv.Document, error)
}

// Exporter 把文档导出为可下载的产物。
type Exporter interface {
	Export(ctx context.Context, doc cv.Document) (*export.Artifact, error)
}

// State 是就地编辑器的生命周期状态。
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateSaving    State = "saving"
	StateExporting State = "exporting"
	StateNotFound  State = "not_found"
	StateFailed    State = "failed"
	StateClosed    State = "closed"
)

// InPlace edits an existing Document through random-access tabs.
// Only one Save or Export runs at a time; a second one fails with ErrBusy.
// Edits made while an export is running do not reach the exported snapshot.
// Edits are rejected with ErrBusy while a save is in flight.
type InPlace struct {
	docSession

	id       string
	repo     Repository
	exporter Exporter
	logger   *slog.Logger

	ops      sync.Mutex
	loading  bool
	state    State
	tab      Step
	advisory string
}

// NewInPlace 构造处于 Loading 状态的编辑器，需调用 Load。
func NewInPlace(id string, repo Repository, exporter Exporter, logger *slog.Logger) *InPlace {
	if logger == nil {
		logger = slog.Default()
	}
	return &InPlace{
		docSession: newDocSession(cv.Document{}),
		id:         id,
		repo:       repo,
		exporter:   exporter,
		logger:     logger.With(slog.String("cv_id", id)),
		state:      StateLoading,
		tab:        StepBasic,
	}
}

// Open 构造编辑器并立即加载文档。
func Open(ctx context.Context, id string, repo Repository, exporter Exporter, logger *slog.Logger) (*InPlace, error) {
	e := NewInPlace(id, repo, exporter, logger)
	if err := e.Load(ctx); err != nil {
		return e, err
	}
	return e, nil
}

// Load 从协作方读取文档。不存在时进入终止的 NotFound 状态；
// 网络失败进入 Failed，可再次调用 Load 重试。
func (e *InPlace) Load(ctx context.Context) error {
	e.mu.Lock()
	switch {
	case e.state == StateFailed:
		e.state = StateLoading
		e.advisory = ""
	case e.state != StateLoading || e.loading:
		e.mu.Unlock()
		return fmt.Errorf("load in state %s: %w", e.state, ErrBusy)
	}
	e.loading = true
	e.mu.Unlock()

	doc, err := e.repo.GetCV(ctx, e.id)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if err != nil {
		if errors.Is(err, cv.ErrNotFound) {
			e.state = StateNotFound
			e.advisory = "CV Not Found"
			return err
		}
		e.logger.Error("load cv failed", slog.Any("error", err))
		e.state = StateFailed
		e.advisory = userMessage(err, "Failed to load CV")
		return err
	}
	e.doc = doc.Normalize()
	e.state = StateReady
	return nil
}

// ID 返回文档标识。
func (e *InPlace) ID() string { return e.id }

// State 返回当前状态。
func (e *InPlace) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Advisory 返回需要展示的错误提示，空字符串表示无。
func (e *InPlace) Advisory() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advisory
}

// DismissAdvisory 清除错误提示。
func (e *InPlace) DismissAdvisory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advisory = ""
}

// Tab 返回当前标签页。
func (e *InPlace) Tab() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tab
}

// SelectTab 切换到任意标签页，不做校验。
func (e *InPlace) SelectTab(s Step) error {
	if !s.Valid() {
		return fmt.Errorf("tab %d: %w", int(s), cv.ErrUnknownSection)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editableLocked(); err != nil {
		return err
	}
	e.tab = s
	return nil
}

// SetField 修改 basic 或 design 中的一个字段。
func (e *InPlace) SetField(group cv.Group, key, value string) error {
	return e.mutate(func(d cv.Document) (cv.Document, error) {
		return d.SetField(group, key, value)
	})
}

// Section 返回指定分区的编辑器。
func (e *InPlace) Section(s cv.Section) *SectionEditor {
	return &SectionEditor{section: s, owner: e}
}

func (e *InPlace) mutate(fn func(cv.Document) (cv.Document, error)) error {
	e.mu.Lock()
	if err := e.editableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	notify, err := e.applyLocked(fn)
	e.mu.Unlock()
	notify()
	return err
}

func (e *InPlace) editableLocked() error {
	switch e.state {
	case StateReady, StateExporting:
		return nil
	case StateSaving:
		return ErrBusy
	case StateClosed:
		return ErrSessionClosed
	default:
		return ErrNotLoaded
	}
}

// Save 用当前完整文档覆盖远端记录。成功后会话结束；失败时保持可编辑并给出提示。
func (e *InPlace) Save(ctx context.Context) error {
	if !e.ops.TryLock() {
		return ErrBusy
	}
	defer e.ops.Unlock()

	e.mu.Lock()
	if e.state != StateReady {
		err := e.editableLocked()
		e.mu.Unlock()
		if err == nil {
			err = ErrBusy
		}
		return err
	}
	e.advisory = ""
	if err := e.doc.Validate(); err != nil {
		e.advisory = userMessage(err, err.Error())
		e.mu.Unlock()
		return err
	}
	snapshot := e.doc.Clone()
	e.state = StateSaving
	e.mu.Unlock()

	_, err := e.repo.UpdateCV(ctx, e.id, snapshot)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.logger.Error("update cv failed", slog.Any("error", err))
		e.state = StateReady
		e.advisory = userMessage(err, "Failed to update CV")
		return err
	}
	e.state = StateClosed
	e.closed = true
	e.logger.Info("cv updated")
	return nil
}

// Export 导出当前会话中的文档（可包含未保存的修改）。
func (e *InPlace) Export(ctx context.Context) (*export.Artifact, error) {
	if e.exporter == nil {
		return nil, errors.New("export not configured")
	}

	if !e.ops.TryLock() {
		return nil, ErrBusy
	}
	defer e.ops.Unlock()

	e.mu.Lock()
	if e.state != StateReady {
		err := e.editableLocked()
		e.mu.Unlock()
		if err == nil {
			err = ErrBusy
		}
		return nil, err
	}
	e.advisory = ""
	snapshot := e.doc.Clone()
	e.state = StateExporting
	e.mu.Unlock()

	artifact, err := e.exporter.Export(ctx, snapshot)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateReady
	if err != nil {
		e.logger.Error("export cv failed", slog.Any("error", err))
		e.advisory = userMessage(err, export.FailureMessage)
		return nil, err
	}
	return artifact, nil
}
