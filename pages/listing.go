// Package pages holds the read/aggregate/render helpers shared by every page
// controller: section view state, offset windows, "load more" accumulation,
// in-flight form guards and user-safe notices.
package pages

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ErrDiscarded: запрос отменён (клиент ушёл), результат никому не нужен.
var ErrDiscarded = errors.New("pages: request canceled, result discarded")

// Window: страница фиксированного размера, страницы считаются с 1.
type Window struct {
	Page int
	Size int
}

// Range возвращает включительные границы окна для gateway.Query.Range.
func (w Window) Range() (from, to int) {
	page := w.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * w.Size, page*w.Size - 1
}

// Section: состояние одного независимого блока страницы.
type Section[T any] struct {
	Items        []T     `json:"items"`
	Empty        bool    `json:"empty"`
	EmptyMessage string  `json:"empty_message,omitempty"`
	HasMore      bool    `json:"has_more"`
	Notice       *Notice `json:"notice,omitempty"`
}

// Failed сообщает, что блок не загрузился и вместо данных показывается уведомление.
func (s Section[T]) Failed() bool {
	return s.Notice != nil && s.Notice.Kind == NoticeError
}

type Fetch[T any] func(ctx context.Context) ([]T, error)

type WindowFetch[T any] func(ctx context.Context, from, to int) ([]T, error)

func resolved[T any](items []T, emptyMessage string) Section[T] {
	if items == nil {
		items = []T{}
	}
	s := Section[T]{Items: items}
	if len(items) == 0 {
		s.Empty = true
		s.EmptyMessage = emptyMessage
	}
	return s
}

func failed[T any](logger *slog.Logger, name string, items []T, err error) Section[T] {
	logger.Error("failed to load section", slog.String("section", name), slog.Any("error", err))
	if items == nil {
		items = []T{}
	}
	return Section[T]{Items: items, Notice: LoadFailed()}
}

// Load выполняет fetch и превращает результат в Section. Ошибка чтения
// логируется и заменяется уведомлением; наружу возвращается только ErrDiscarded.
func Load[T any](ctx context.Context, logger *slog.Logger, name string, fetch Fetch[T], emptyMessage string) (Section[T], error) {
	items, err := fetch(ctx)
	if ctx.Err() != nil {
		logger.Debug("section result discarded", slog.String("section", name))
		return Section[T]{}, ErrDiscarded
	}
	if err != nil {
		return failed[T](logger, name, nil, err), nil
	}
	return resolved(items, emptyMessage), nil
}

// LoadPage загружает одно окно. HasMore: пока страница заполнена целиком.
func LoadPage[T any](ctx context.Context, logger *slog.Logger, name string, w Window, fetch WindowFetch[T], emptyMessage string) (Section[T], error) {
	from, to := w.Range()
	s, err := Load(ctx, logger, name, func(ctx context.Context) ([]T, error) {
		return fetch(ctx, from, to)
	}, emptyMessage)
	if err != nil {
		return s, err
	}
	s.HasMore = !s.Failed() && len(s.Items) == w.Size
	return s, nil
}

// Accumulate отдаёт первые pages страниц одной выборкой окна [0, pages*size).
// Результат совпадает со склейкой окон 1..pages, прочитанных по очереди.
// Клиент, который дописывает страницы сам, берёт только новое окно через LoadPage.
func Accumulate[T any](ctx context.Context, logger *slog.Logger, name string, pages, size int, fetch WindowFetch[T], emptyMessage string) (Section[T], error) {
	if pages < 1 {
		pages = 1
	}
	s, err := Load(ctx, logger, name, func(ctx context.Context) ([]T, error) {
		return fetch(ctx, 0, pages*size-1)
	}, emptyMessage)
	if err != nil {
		return s, err
	}
	s.HasMore = !s.Failed() && len(s.Items) == pages*size
	return s, nil
}

// Detail: состояние страницы одной записи.
type Detail[T any] struct {
	Item     *T      `json:"item,omitempty"`
	NotFound bool    `json:"not_found"`
	Notice   *Notice `json:"notice,omitempty"`
}

// LoadOne загружает одну запись; isNotFound отличает "нет такой" от сбоя.
func LoadOne[T any](ctx context.Context, logger *slog.Logger, name string, fetch func(context.Context) (*T, error), isNotFound func(error) bool) (Detail[T], error) {
	item, err := fetch(ctx)
	if ctx.Err() != nil {
		logger.Debug("detail result discarded", slog.String("section", name))
		return Detail[T]{}, ErrDiscarded
	}
	switch {
	case err == nil && item != nil:
		return Detail[T]{Item: item}, nil
	case err == nil || isNotFound(err):
		return Detail[T]{NotFound: true}, nil
	default:
		logger.Error("failed to load detail", slog.String("section", name), slog.Any("error", err))
		return Detail[T]{Notice: LoadFailed()}, nil
	}
}

// Concurrently запускает независимые загрузчики параллельно. Каждый сам
// разрешает своё состояние, ошибкой считается только отмена запроса.
func Concurrently(ctx context.Context, loaders ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, load := range loaders {
		g.Go(func() error { return load(gctx) })
	}
	return g.Wait()
}
