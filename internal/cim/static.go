package cim

import (
	"context"
	"sync"

	"smiscope/internal/domain"
)

// StaticProvider serves fixed records per class. Classes listed in Errors fail
// with that error; classes absent from both maps are unsupported.
type StaticProvider struct {
	Records map[string][]domain.RawEntityRecord
	Errors  map[string]error

	mu    sync.Mutex
	calls []string
}

// NewStaticProvider creates an empty static provider
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		Records: make(map[string][]domain.RawEntityRecord),
		Errors:  make(map[string]error),
	}
}

// Add appends records for a class
func (p *StaticProvider) Add(className string, records ...domain.RawEntityRecord) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Records == nil {
		p.Records = make(map[string][]domain.RawEntityRecord)
	}
	p.Records[className] = append(p.Records[className], records...)
	return p
}

// Fail makes every query for a class return err
func (p *StaticProvider) Fail(className string, err error) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Errors == nil {
		p.Errors = make(map[string]error)
	}
	p.Errors[className] = err
	return p
}

// Query implements QueryProvider
func (p *StaticProvider) Query(ctx context.Context, className string) ([]domain.RawEntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, className)

	if err, ok := p.Errors[className]; ok {
		return nil, err
	}
	records, ok := p.Records[className]
	if !ok {
		return nil, ErrClassNotSupported
	}
	out := make([]domain.RawEntityRecord, len(records))
	copy(out, records)
	return out, nil
}

// Calls returns the class names queried so far
func (p *StaticProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}
