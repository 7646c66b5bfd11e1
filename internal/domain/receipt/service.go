// Package receipt provides the receipt builder service.
package receipt

import (
	"context"
	"fmt"
	"time"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/numerator"
	"goodsflow/internal/core/tx"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/effects"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/source"
	"goodsflow/pkg/logger"
)

// NumberPrefix for receipt documents.
const NumberPrefix = "GRN"

// Receipt numbers are accounting-relevant: the strict strategy keeps
// them unique and strictly increasing within a year.
var numeratorOpts = &numerator.Options{Strategy: numerator.StrategyStrict}

// LineInput is one received material tuple.
type LineInput struct {
	Material         material.Ref `json:"material"`
	ReceivedQty      float64      `json:"receivedQty"`
	ExtraReceivedQty float64      `json:"extraReceivedQty"`
	DamagedQty       float64      `json:"damagedQty"`

	// UnitPrice is optional; missing or zero falls back to the source line.
	UnitPrice *types.Money `json:"unitPrice,omitempty"`
}

// CartonLineInput is one returned carton group (challan receipts).
type CartonLineInput struct {
	ProductName   string  `json:"productName"`
	Cartons       float64 `json:"cartons"`
	DamagedPieces float64 `json:"damagedPieces"`
}

// Input describes a receipt submission.
type Input struct {
	SourceID   id.ID     `json:"sourceId"`
	Date       time.Time `json:"date"`
	ReceivedBy string    `json:"receivedBy"`
	Comment    string    `json:"comment"`

	// Order receipts
	Lines []LineInput `json:"lines"`

	// Challan receipts
	CartonsReturned float64           `json:"cartonsReturned"`
	CartonLines     []CartonLineInput `json:"cartonLines"`
}

// Service builds, validates and persists receipt documents.
type Service struct {
	repo      Repository
	sources   source.Repository
	numerator numerator.Generator
	txManager tx.Manager
	effects   effects.Dispatcher
	policy    *AcceptancePolicy
	hooks     *domain.HookRegistry[*ReceiptDocument]
}

// NewService creates a receipt service. policy may be nil (accept all).
func NewService(
	repo Repository,
	sources source.Repository,
	gen numerator.Generator,
	txManager tx.Manager,
	dispatcher effects.Dispatcher,
	policy *AcceptancePolicy,
) *Service {
	return &Service{
		repo:      repo,
		sources:   sources,
		numerator: gen,
		txManager: txManager,
		effects:   dispatcher,
		policy:    policy,
		hooks:     domain.NewHookRegistry[*ReceiptDocument](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*ReceiptDocument] {
	return s.hooks
}

// Create validates and persists a new receipt, then triggers the
// best-effort secondary effects (cost ledger, finished stock, source
// sync). The source row is locked for the duration of the transaction so
// two concurrent submissions cannot both read the same pending quantity.
func (s *Service) Create(ctx context.Context, in Input) (*ReceiptDocument, error) {
	var doc *ReceiptDocument

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		src, err := s.loadSourceForUpdate(ctx, in.SourceID)
		if err != nil {
			return err
		}

		others, err := s.repo.ListBySource(ctx, in.SourceID)
		if err != nil {
			return fmt.Errorf("list receipts: %w", err)
		}

		doc, err = s.build(ctx, src, others, in)
		if err != nil {
			return err
		}

		if err := s.hooks.Run(ctx, domain.BeforeCreate, doc); err != nil {
			return err
		}

		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix), numeratorOpts, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		return s.persist(ctx, doc, true)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "receipt created",
		"id", doc.ID,
		"number", doc.Number,
		"status", doc.Status,
	)

	s.dispatchEffects(ctx, doc, nil)
	return doc, nil
}

// Update replaces the lines of a Partial receipt and re-evaluates its
// status. The receipt's own earlier quantities are excluded from the
// pending sums so it does not count against itself.
func (s *Service) Update(ctx context.Context, docID id.ID, in Input) (*ReceiptDocument, error) {
	var doc, prev *ReceiptDocument

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.GetByIDLocked(ctx, docID)
		if err != nil {
			return err
		}
		prev = existing

		if err := existing.CanModify(); err != nil {
			return err
		}

		if !id.IsNil(in.SourceID) && in.SourceID != existing.SourceID {
			return apperror.NewValidation("receipt source cannot change").
				WithDetail("field", "sourceId")
		}

		src, err := s.loadSourceForUpdate(ctx, existing.SourceID)
		if err != nil {
			return err
		}

		all, err := s.repo.ListBySource(ctx, existing.SourceID)
		if err != nil {
			return fmt.Errorf("list receipts: %w", err)
		}
		others := make([]*ReceiptDocument, 0, len(all))
		for _, r := range all {
			if r.ID != docID {
				others = append(others, r)
			}
		}

		in.SourceID = existing.SourceID
		rebuilt, err := s.build(ctx, src, others, in)
		if err != nil {
			return err
		}

		// Carry identity and audit trail of the original document
		rebuilt.BaseDocument = existing.BaseDocument
		rebuilt.Number = existing.Number
		rebuilt.Touch()
		doc = rebuilt

		if err := s.hooks.Run(ctx, domain.BeforeUpdate, doc); err != nil {
			return err
		}

		return s.persist(ctx, doc, false)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, doc); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}

	logger.Info(ctx, "receipt updated",
		"id", doc.ID,
		"number", doc.Number,
		"status", doc.Status,
	)

	s.dispatchEffects(ctx, doc, prev)
	return doc, nil
}

// GetByID retrieves a receipt with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*ReceiptDocument, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, doc)
}

// GetByIDLocked retrieves a receipt with a row lock and its lines.
func (s *Service) GetByIDLocked(ctx context.Context, docID id.ID) (*ReceiptDocument, error) {
	doc, err := s.repo.GetForUpdate(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, doc)
}

func (s *Service) withLines(ctx context.Context, doc *ReceiptDocument) (*ReceiptDocument, error) {
	lines, err := s.repo.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	if doc.SourceKind == source.KindChallan {
		cartonLines, err := s.repo.GetCartonLines(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("get carton lines: %w", err)
		}
		doc.CartonLines = cartonLines
	}
	return doc, nil
}

// GetPending returns the outstanding quantities per source line.
func (s *Service) GetPending(ctx context.Context, sourceID id.ID) ([]PendingQuantity, error) {
	src, err := s.loadSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	receipts, err := s.repo.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}

	return CalculatePending(src, receipts), nil
}

// GetPendingCartons returns the outstanding carton count for a challan.
func (s *Service) GetPendingCartons(ctx context.Context, sourceID id.ID) (float64, error) {
	src, err := s.loadSource(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if src.Kind != source.KindChallan {
		return 0, apperror.NewValidation("source is not a challan").
			WithDetail("source_id", sourceID.String())
	}

	receipts, err := s.repo.ListBySource(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("list receipts: %w", err)
	}

	return PendingCartons(src, receipts), nil
}

// List retrieves receipts with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*ReceiptDocument], error) {
	return s.repo.List(ctx, filter)
}

// --- building ---

func (s *Service) loadSource(ctx context.Context, sourceID id.ID) (*source.SourceDocument, error) {
	src, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	lines, err := s.sources.GetLines(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source lines: %w", err)
	}
	src.Lines = lines
	return src, nil
}

func (s *Service) loadSourceForUpdate(ctx context.Context, sourceID id.ID) (*source.SourceDocument, error) {
	src, err := s.sources.GetForUpdate(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if err := src.CanReceive(); err != nil {
		return nil, err
	}
	lines, err := s.sources.GetLines(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source lines: %w", err)
	}
	src.Lines = lines
	return src, nil
}

// build assembles and validates a receipt against the source commitment.
// others must exclude the receipt being updated, if any.
func (s *Service) build(ctx context.Context, src *source.SourceDocument, others []*ReceiptDocument, in Input) (*ReceiptDocument, error) {
	doc := New(src, in.ReceivedBy)
	if !in.Date.IsZero() {
		doc.Date = in.Date
	}
	doc.Comment = in.Comment

	if in.ReceivedBy == "" {
		return nil, apperror.NewValidation("received by is required").
			WithDetail("field", "receivedBy")
	}

	var err error
	if src.Kind == source.KindChallan {
		err = s.buildChallan(doc, src, others, in)
	} else {
		err = s.buildOrder(ctx, doc, src, others, in)
	}
	if err != nil {
		return nil, err
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	if doc.Status.IsTerminal() {
		doc.Lock(fmt.Sprintf("receipt reached terminal status %s", doc.Status))
	}
	return doc, nil
}

func (s *Service) buildOrder(ctx context.Context, doc *ReceiptDocument, src *source.SourceDocument, others []*ReceiptDocument, in Input) error {
	if len(in.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	pending := CalculatePending(src, others)

	// receivedByLine tracks this submission's quantities per source line
	// for the document-level match flags.
	receivedByLine := make(map[id.ID]*LineInput, len(in.Lines))

	for i := range in.Lines {
		lineIn := &in.Lines[i]
		if err := lineIn.Material.Validate(ctx); err != nil {
			return err
		}

		p := findPending(pending, lineIn.Material)
		if p == nil {
			return apperror.NewNotFound("source line for material", lineIn.Material.String())
		}
		if _, dup := receivedByLine[p.LineID]; dup {
			return apperror.NewValidation("duplicate material line").
				WithDetail("material", lineIn.Material.String())
		}
		receivedByLine[p.LineID] = lineIn

		if types.QtyExceeds(lineIn.ReceivedQty, p.PendingQty) {
			return apperror.NewQuantityExceedsPending(p.MaterialName, lineIn.ReceivedQty, p.PendingQty)
		}
		if types.QtyExceeds(lineIn.ExtraReceivedQty, p.PendingExtraQty) {
			return apperror.NewExtraExceedsPending(p.MaterialName, lineIn.ExtraReceivedQty, p.PendingExtraQty)
		}

		if err := s.policy.Check(PolicyInput{
			Material:      p.MaterialName,
			Ordered:       p.OrderedQty,
			Pending:       p.PendingQty,
			Received:      lineIn.ReceivedQty,
			ExtraReceived: lineIn.ExtraReceivedQty,
			ExtraPending:  p.PendingExtraQty,
		}); err != nil {
			return err
		}

		srcLine := src.FindLine(lineIn.Material)
		price := srcLine.UnitPrice
		if lineIn.UnitPrice != nil && !lineIn.UnitPrice.IsZero() {
			price = *lineIn.UnitPrice
		}

		doc.Lines = append(doc.Lines, Line{
			LineID:           id.New(),
			LineNo:           len(doc.Lines) + 1,
			MaterialID:       srcLine.MaterialID,
			MaterialName:     srcLine.MaterialName,
			OrderedQty:       p.OrderedQty,
			PrevReceivedQty:  p.PreviouslyReceived,
			ReceivedQty:      lineIn.ReceivedQty,
			ExtraReceivedQty: lineIn.ExtraReceivedQty,
			DamagedQty:       lineIn.DamagedQty,
			BalanceQty:       p.OrderedQty - p.PreviouslyReceived - lineIn.ReceivedQty,
			CumulativeQty:    p.PreviouslyReceived + lineIn.ReceivedQty,
			UnitPrice:        price,
		})
	}

	// Match flags are evaluated over every source line; lines absent from
	// this submission contribute zero.
	normalFullyMatched := true
	extraFullyMatched := true
	hasExtraAllowance := false
	for i := range pending {
		p := &pending[i]
		if p.ExtraAllowedQty > 0 {
			hasExtraAllowance = true
		}
		var recv, extra float64
		if lineIn, ok := receivedByLine[p.LineID]; ok {
			recv = lineIn.ReceivedQty
			extra = lineIn.ExtraReceivedQty
		}
		if !types.QtyEqual(p.PreviouslyReceived+recv, p.OrderedQty) {
			normalFullyMatched = false
		}
		if !types.QtyEqual(p.PreviouslyExtraReceived+extra, p.ExtraAllowedQty) {
			extraFullyMatched = false
		}
	}
	// An order with no over-delivery allowance has no extra dimension:
	// the extra flag follows the normal match so a short receipt stays
	// Partial instead of reading as ExtraCompleted.
	if !hasExtraAllowance {
		extraFullyMatched = normalFullyMatched
	}
	doc.Status = Evaluate(normalFullyMatched, extraFullyMatched)

	return nil
}

func (s *Service) buildChallan(doc *ReceiptDocument, src *source.SourceDocument, others []*ReceiptDocument, in Input) error {
	if in.CartonsReturned <= 0 {
		return apperror.NewValidation("cartons returned must be positive").
			WithDetail("field", "cartonsReturned")
	}

	pendingCartons := PendingCartons(src, others)
	if types.QtyExceeds(in.CartonsReturned, pendingCartons) {
		return apperror.NewQuantityExceedsPending("cartons", in.CartonsReturned, pendingCartons)
	}

	doc.CartonsReturned = in.CartonsReturned
	doc.Status = EvaluateCarton(pendingCartons, in.CartonsReturned)

	// Returned cartons must be attributable to a finished good. A challan
	// covering a single product needs no explicit split.
	if len(in.CartonLines) == 0 {
		products := distinctProducts(src)
		if len(products) != 1 {
			return apperror.NewValidation("carton split per product is required for multi-product challans").
				WithDetail("field", "cartonLines").
				WithDetail("products", products)
		}
		in.CartonLines = []CartonLineInput{{ProductName: products[0], Cartons: in.CartonsReturned}}
	}

	for i := range in.CartonLines {
		cl := &in.CartonLines[i]
		if !challanHasProduct(src, cl.ProductName) {
			return apperror.NewNotFound("product on challan", cl.ProductName)
		}
		doc.CartonLines = append(doc.CartonLines, CartonLine{
			LineID:        id.New(),
			LineNo:        i + 1,
			ProductName:   cl.ProductName,
			Cartons:       cl.Cartons,
			DamagedPieces: cl.DamagedPieces,
		})
	}

	// Material usage is proportional to the returned fraction, applied
	// independently per line.
	pending := CalculatePending(src, others)
	for i := range src.Lines {
		srcLine := &src.Lines[i]
		used, remaining := finishedstock.ProportionalUsage(in.CartonsReturned, src.CartonsSent, srcLine.OrderedQty)

		var prev float64
		if p := findPending(pending, srcLine.MaterialRef()); p != nil {
			prev = p.PreviouslyReceived
		}

		doc.Lines = append(doc.Lines, Line{
			LineID:          id.New(),
			LineNo:          len(doc.Lines) + 1,
			MaterialID:      srcLine.MaterialID,
			MaterialName:    srcLine.MaterialName,
			OrderedQty:      srcLine.OrderedQty,
			PrevReceivedQty: prev,
			ReceivedQty:     used,
			BalanceQty:      srcLine.OrderedQty - prev - used,
			CumulativeQty:   prev + used,
			UnitPrice:       srcLine.UnitPrice,
			UsedQty:         used,
			RemainingQty:    remaining,
		})
	}

	return nil
}

func (s *Service) persist(ctx context.Context, doc *ReceiptDocument, isNew bool) error {
	var err error
	if isNew {
		err = s.repo.Create(ctx, doc)
	} else {
		err = s.repo.Update(ctx, doc)
	}
	if err != nil {
		return fmt.Errorf("persist document: %w", err)
	}

	if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	if len(doc.CartonLines) > 0 {
		if err := s.repo.SaveCartonLines(ctx, doc.ID, doc.CartonLines); err != nil {
			return fmt.Errorf("save carton lines: %w", err)
		}
	}
	return nil
}

// --- secondary effects ---

// dispatchEffects runs the post-commit effects. prev is the receipt
// state before an update, nil on create; challan stock adjustments are
// computed as deltas against it.
func (s *Service) dispatchEffects(ctx context.Context, doc *ReceiptDocument, prev *ReceiptDocument) {
	if doc.SourceKind == source.KindChallan {
		s.dispatchChallanEffects(ctx, doc, prev)
	} else {
		s.dispatchOrderEffects(ctx, doc, prev)
	}

	s.effects.Dispatch(ctx, effects.KindSourceSync, effects.SourceSyncPayload{
		SourceID:         doc.SourceID,
		CurrentReceiptID: doc.ID,
	})
}

func (s *Service) dispatchOrderEffects(ctx context.Context, doc *ReceiptDocument, prev *ReceiptDocument) {
	posted := make(map[string]struct{}, len(doc.Lines))

	for i := range doc.Lines {
		line := &doc.Lines[i]
		posted[lineMaterialKey(line)] = struct{}{}

		qty := line.ReceivedQty + line.ExtraReceivedQty
		if qty <= 0 {
			continue
		}
		s.effects.Dispatch(ctx, effects.KindLedgerPost, effects.LedgerPostPayload{
			MaterialID:    line.MaterialID,
			MaterialName:  line.MaterialName,
			QuantityAdded: qty,
			UnitPrice:     line.UnitPrice,
			ReceiptID:     doc.ID,
			ReceiptNumber: doc.Number,
			Date:          doc.Date,
		})
	}

	if prev == nil {
		return
	}

	// A material dropped by the edit never reposts, so its earlier ledger
	// event must be withdrawn explicitly.
	for i := range prev.Lines {
		line := &prev.Lines[i]
		if _, ok := posted[lineMaterialKey(line)]; ok {
			continue
		}
		s.effects.Dispatch(ctx, effects.KindLedgerReverse, effects.LedgerReversePayload{
			MaterialID:   line.MaterialID,
			MaterialName: line.MaterialName,
			ReceiptID:    doc.ID,
		})
	}
}

// lineMaterialKey identifies a line's material across both addressing
// schemes.
func lineMaterialKey(line *Line) string {
	if line.MaterialID != nil && !id.IsNil(*line.MaterialID) {
		return line.MaterialID.String()
	}
	return material.NormalizeName(line.MaterialName)
}

// dispatchChallanEffects adjusts finished-goods stock by the delta
// against the previous receipt state, for cartons and damaged pieces
// alike, so re-submitting unchanged values moves nothing.
func (s *Service) dispatchChallanEffects(ctx context.Context, doc *ReceiptDocument, prev *ReceiptDocument) {
	prevCartons := make(map[string]float64)
	prevDamaged := make(map[string]float64)
	if prev != nil {
		for i := range prev.CartonLines {
			cl := &prev.CartonLines[i]
			prevCartons[cl.ProductName] += cl.Cartons
			prevDamaged[cl.ProductName] += cl.DamagedPieces
		}
	}

	for i := range doc.CartonLines {
		cl := &doc.CartonLines[i]
		cartonDelta := cl.Cartons - prevCartons[cl.ProductName]
		damagedDelta := cl.DamagedPieces - prevDamaged[cl.ProductName]
		delete(prevCartons, cl.ProductName)
		delete(prevDamaged, cl.ProductName)

		if cartonDelta != 0 {
			s.effects.Dispatch(ctx, effects.KindFinishedAdd, effects.FinishedAddPayload{
				ProductName: cl.ProductName,
				Cartons:     cartonDelta,
			})
		}
		if damagedDelta != 0 {
			s.effects.Dispatch(ctx, effects.KindFinishedDamaged, effects.FinishedDamagedPayload{
				ProductName: cl.ProductName,
				Pieces:      damagedDelta,
			})
		}
	}

	// Products dropped by the update give their cartons and damage back.
	for product, cartons := range prevCartons {
		if cartons > 0 {
			s.effects.Dispatch(ctx, effects.KindFinishedAdd, effects.FinishedAddPayload{
				ProductName: product,
				Cartons:     -cartons,
			})
		}
	}
	for product, pieces := range prevDamaged {
		if pieces > 0 {
			s.effects.Dispatch(ctx, effects.KindFinishedDamaged, effects.FinishedDamagedPayload{
				ProductName: product,
				Pieces:      -pieces,
			})
		}
	}
}

// --- helpers ---

func distinctProducts(src *source.SourceDocument) []string {
	seen := make(map[string]struct{})
	var products []string
	for i := range src.Lines {
		name := src.Lines[i].ProductName
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			products = append(products, name)
		}
	}
	return products
}

func challanHasProduct(src *source.SourceDocument, productName string) bool {
	for i := range src.Lines {
		if src.Lines[i].ProductName == productName {
			return true
		}
	}
	return false
}
