package editor

import (
	"context"
	"log/slog"

	"cvbuilder/internal/cv"
)

// Creator 是持久化协作方的创建接口。
type Creator interface {
	CreateCV(ctx context.Context, doc cv.Document) (cv.Document, error)
}

// Wizard assembles a new Document step by step. Next is gated by the current
// step's validation; Prev is not. Submit on the last step creates the Document.
type Wizard struct {
	docSession

	creator    Creator
	logger     *slog.Logger
	step       Step
	errMsg     string
	submitting bool
	created    cv.Document
}

// WizardOption 配置向导。
type WizardOption func(*Wizard)

// WithSeed 以给定文档（例如版式示例资料）作为起点，文档按值复制。
func WithSeed(doc cv.Document) WizardOption {
	return func(w *Wizard) {
		seeded := doc.Normalize()
		seeded.ID = ""
		w.doc = seeded
	}
}

// WithDesign 覆盖起始文档的设计参数。
func WithDesign(tokens cv.DesignTokens) WizardOption {
	return func(w *Wizard) {
		w.doc.Design = tokens
	}
}

// NewWizard 创建一个停在 Basic 步骤的向导。
func NewWizard(creator Creator, logger *slog.Logger, opts ...WizardOption) *Wizard {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Wizard{
		docSession: newDocSession(cv.New()),
		creator:    creator,
		logger:     logger,
		step:       StepBasic,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Step 返回当前步骤。
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Error 返回当前需要展示的错误信息（最近一次失败覆盖之前的）。
func (w *Wizard) Error() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

// Submitted 报告向导是否已经成功提交。
func (w *Wizard) Submitted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Created 返回提交成功后协作方返回的文档。
func (w *Wizard) Created() (cv.Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.created, w.closed
}

// Next 校验当前步骤，通过则前进一步（最多到最后一步）。
func (w *Wizard) Next() bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	w.errMsg = ""
	if err := ValidateStep(w.doc, w.step); err != nil {
		w.errMsg = userMessage(err, err.Error())
		w.mu.Unlock()
		return false
	}
	if w.step >= lastStep {
		w.mu.Unlock()
		return false
	}
	w.step++
	notify := w.enterLocked()
	w.mu.Unlock()
	notify()
	return true
}

// Prev 无条件后退一步（最少到第一步）。
func (w *Wizard) Prev() {
	w.mu.Lock()
	if w.closed || w.step == StepBasic {
		w.mu.Unlock()
		return
	}
	w.step--
	notify := w.enterLocked()
	w.mu.Unlock()
	notify()
}

// enterLocked 进入列表类步骤时，若分区为空则追加一条空记录。
// 只在进入步骤时触发；在步骤内删光记录不会再次追加。
func (w *Wizard) enterLocked() func() {
	sec, ok := w.step.Section()
	if !ok || w.doc.Len(sec) > 0 {
		return func() {}
	}
	notify, err := w.applyLocked(func(d cv.Document) (cv.Document, error) {
		next, _, err := d.AppendItem(sec)
		return next, err
	})
	if err != nil {
		w.logger.Warn("auto append on step entry failed", slog.String("section", string(sec)), slog.Any("error", err))
	}
	return notify
}

// SetField 修改 basic 或 design 中的一个字段。
func (w *Wizard) SetField(group cv.Group, key, value string) error {
	return w.mutate(func(d cv.Document) (cv.Document, error) {
		return d.SetField(group, key, value)
	})
}

// Section 返回指定分区的编辑器。
func (w *Wizard) Section(s cv.Section) *SectionEditor {
	return &SectionEditor{section: s, owner: w}
}

func (w *Wizard) mutate(fn func(cv.Document) (cv.Document, error)) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrBusy
	}
	notify, err := w.applyLocked(fn)
	w.mu.Unlock()
	notify()
	return err
}

// Submit 在最后一步重新校验并调用协作方创建文档。
// 成功后会话结束；失败时停留在最后一步并展示协作方的错误信息。
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrSessionClosed
	case w.submitting:
		w.mu.Unlock()
		return ErrBusy
	case w.step != lastStep:
		w.mu.Unlock()
		return ErrNotFinalStep
	}
	w.errMsg = ""
	if err := ValidateStep(w.doc, w.step); err != nil {
		w.errMsg = userMessage(err, err.Error())
		w.mu.Unlock()
		return err
	}
	snapshot := w.doc.Clone()
	w.submitting = true
	w.mu.Unlock()

	created, err := w.creator.CreateCV(ctx, snapshot)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.logger.Error("create cv failed", slog.Any("error", err))
		w.errMsg = userMessage(err, "Failed to save CV")
		return err
	}
	w.created = created
	w.closed = true
	w.logger.Info("cv created", slog.String("cv_id", created.ID))
	return nil
}
