package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quillback/mnemo-api/internal/content"
	"github.com/quillback/mnemo-api/internal/domain"
	"github.com/quillback/mnemo-api/internal/generation"
	"github.com/quillback/mnemo-api/internal/platform/logger"
)

// chunkSet is one extraction pass over a stored document: the chunks to
// generate from, plus the raw PDF bytes when the provider attaches the
// document natively.
type chunkSet struct {
	chunks   []content.Chunk
	pdf      []byte
	meta     sessionMetadata
	baseMeta bool
}

// ProcessSession runs the generation pipeline for a session. It is invoked
// by the background task runner; per-chunk failures are absorbed into the
// session's counters and only pipeline-level failures return an error.
func (s *SessionService) ProcessSession(ctx context.Context, sessionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("session_id", sessionID.String()))

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.SessionStatusPending {
		// Recovered task that raced the status update; take the session
		// through the normal transition.
		if err := session.StartProcessing(); err != nil {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}
	}
	if session.Status != domain.SessionStatusProcessing {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}

	gen, err := s.providers.Provider(session.Provider)
	if err != nil {
		return s.failSession(ctx, session, err.Error())
	}

	pv, err := s.prompts.GetActive(ctx, domain.PromptTypeGeneration)
	if err != nil {
		return s.failSession(ctx, session, "no active generation prompt")
	}
	session.PromptVersionID = pv.ID

	set, err := s.extractChunks(ctx, session, gen)
	if err != nil {
		return s.failSession(ctx, session, err.Error())
	}
	if len(set.chunks) == 0 {
		return s.failSession(ctx, session, "document contained no extractable content")
	}

	session.TotalChunks = len(set.chunks)
	session.ProcessedChunks = 0
	session.FailedChunks = 0
	if set.baseMeta {
		writeMetadata(session, set.meta)
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}

	total := 0
	for _, chunk := range set.chunks {
		userPrompt := pv.RenderUserPrompt(chunk.Text) +
			generation.BatchContext(chunk.Index+1, len(set.chunks))
		created, chunkErr := s.generateChunk(ctx, session, gen, chunk, chunk.Index, userPrompt, pv.SystemPrompt, set.pdf)
		if chunkErr != nil {
			log.Warn("chunk generation failed",
				slog.Int("chunk_index", chunk.Index),
				slog.String("error", chunkErr.Error()))
		}
		total += created

		if err := session.RecordChunkOutcome(chunkErr == nil); err != nil {
			return err
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}
	}

	if total == 0 && session.FailedChunks == session.TotalChunks {
		return s.failSession(ctx, session, "all chunks failed")
	}

	if err := session.MarkReady(); err != nil {
		return err
	}
	if err := s.finishGeneration(ctx, session, pv, total); err != nil {
		return err
	}

	log.Info("generation complete",
		slog.Int("cards", total),
		slog.Int("failed_chunks", session.FailedChunks))
	return nil
}

// ContinueSession runs another generation pass over an already-generated
// session, feeding existing cards back as dedup context. The session
// returns to ready even when some chunks fail.
func (s *SessionService) ContinueSession(ctx context.Context, sessionID uuid.UUID, focusAreas []string) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("session_id", sessionID.String()))

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.SessionStatusProcessing {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}

	gen, err := s.providers.Provider(session.Provider)
	if err != nil {
		return s.failSession(ctx, session, err.Error())
	}

	existing, err := s.cards.ListBySession(ctx, sessionID, nil)
	if err != nil {
		return err
	}
	offset := len(existing)
	dedup := dedupContext(existing)

	set, err := s.extractChunks(ctx, session, gen)
	if err != nil {
		// A continuation failure is recoverable: the original cards are
		// intact, so the session goes back to ready rather than failed.
		return s.returnToReady(ctx, session, err)
	}

	session.TotalChunks = len(set.chunks)
	session.ProcessedChunks = 0
	session.FailedChunks = 0
	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}

	added := 0
	for _, chunk := range set.chunks {
		userPrompt := generation.ContinuationPrompt(chunk.Text, dedup, focusAreas) +
			generation.BatchContext(chunk.Index+1, len(set.chunks))
		created, chunkErr := s.generateChunk(ctx, session, gen, chunk, offset+chunk.Index,
			userPrompt, generation.ContinuationSystemPrompt(), set.pdf)
		if chunkErr != nil {
			log.Warn("continuation chunk failed",
				slog.Int("chunk_index", chunk.Index),
				slog.String("error", chunkErr.Error()))
		}
		added += created

		if err := session.RecordChunkOutcome(chunkErr == nil); err != nil {
			return err
		}
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}
	}

	meta := readMetadata(session)
	meta.ContinueCount++
	meta.ContinueCardsAdded += added
	writeMetadata(session, meta)

	if err := session.MarkReady(); err != nil {
		return err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}

	log.Info("continuation complete",
		slog.Int("cards_added", added),
		slog.Int("failed_chunks", session.FailedChunks))
	return nil
}

// generateChunk runs one provider call and persists its valid candidates
// as pending cards, with image records for any referenced chunk images.
func (s *SessionService) generateChunk(
	ctx context.Context,
	session *domain.Session,
	gen generation.Generator,
	chunk content.Chunk,
	cardChunkIndex int,
	userPrompt, systemPrompt string,
	pdf []byte,
) (int, error) {
	timeout := time.Duration(s.llmCfg.ChunkTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	chunkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := generation.CardRequest{
		SystemPrompt: systemPrompt,
		PDF:          pdf,
	}

	imageNames := make([]string, 0, len(chunk.Images))
	imagesByName := make(map[string]content.ChunkImage, len(chunk.Images))
	for _, img := range chunk.Images {
		data, err := os.ReadFile(img.AbsPath)
		if err != nil {
			continue
		}
		name := filepath.Base(img.RelPath)
		imageNames = append(imageNames, name)
		imagesByName[name] = img
		req.Images = append(req.Images, generation.InlineImage{
			Filename:  name,
			MediaType: mediaTypeFor(name),
			Data:      data,
		})
	}
	req.UserPrompt = generation.ImageSection(imageNames) + userPrompt

	candidates, err := gen.GenerateCards(chunkCtx, req)
	if err != nil {
		return 0, err
	}

	cards := make([]*domain.Card, 0, len(candidates))
	cardImages := make(map[uuid.UUID][]string)
	for _, c := range candidates {
		if !c.IsUsable() {
			continue
		}
		card, err := domain.NewCard(session.ID, c.Front, c.Back, c.Tags, cardChunkIndex)
		if err != nil {
			continue
		}
		cards = append(cards, card)
		if refs := referencedImages(c, imageNames); len(refs) > 0 {
			cardImages[card.ID] = refs
		}
	}
	if len(cards) == 0 {
		return 0, nil
	}

	imageRows, err := s.storeChunkImages(ctx, session, cardImages, imagesByName)
	if err != nil {
		return 0, err
	}

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.cards.WithTx(tx).CreateMultiple(ctx, cards); err != nil {
			return err
		}
		if len(imageRows) > 0 {
			return s.images.WithTx(tx).CreateMultiple(ctx, imageRows)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(cards), nil
}

// storeChunkImages copies each referenced image into the media store once
// and builds the CardImage rows for every referencing card.
func (s *SessionService) storeChunkImages(
	ctx context.Context,
	session *domain.Session,
	cardImages map[uuid.UUID][]string,
	imagesByName map[string]content.ChunkImage,
) ([]*domain.CardImage, error) {
	type stored struct {
		filename string
		size     int64
	}
	saved := make(map[string]stored)
	var rows []*domain.CardImage

	for cardID, names := range cardImages {
		for _, name := range names {
			img, ok := imagesByName[name]
			if !ok {
				continue
			}
			st, ok := saved[name]
			if !ok {
				f, err := os.Open(img.AbsPath)
				if err != nil {
					continue
				}
				storedName, size, err := s.media.SaveImage(ctx, session.ID, name, f)
				_ = f.Close()
				if err != nil {
					return nil, fmt.Errorf("failed to store image %s: %w", name, err)
				}
				st = stored{filename: storedName, size: size}
				saved[name] = st
			}

			row, err := domain.NewCardImage(cardID, session.ID, name, st.filename, mediaTypeFor(name), st.size)
			if err != nil {
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// extractChunks derives the chunk set for a session from its stored upload.
func (s *SessionService) extractChunks(
	ctx context.Context,
	session *domain.Session,
	gen generation.Generator,
) (*chunkSet, error) {
	switch session.SourceType {
	case domain.SourceTypeMarkdown:
		return s.extractMarkdown(session)
	case domain.SourceTypePDF:
		if gen.SupportsNativePDF() {
			return s.extractNativePDF(ctx, session)
		}
		return s.extractPDFText(ctx, session)
	default:
		return nil, domain.ErrInvalidSourceType
	}
}

func (s *SessionService) extractMarkdown(session *domain.Session) (*chunkSet, error) {
	doc, err := content.ParseMarkdown(session.FilePath)
	if err != nil {
		return nil, err
	}
	return &chunkSet{
		chunks:   content.ChunkMarkdown(doc.Content, doc.Images, s.genCfg.ChunkSize),
		meta:     sessionMetadata{Title: doc.Title},
		baseMeta: true,
	}, nil
}

// extractNativePDF reads the stored PDF and batches page ranges when the
// page count is known. Without an extractor the document rides as one
// chunk.
func (s *SessionService) extractNativePDF(ctx context.Context, session *domain.Session) (*chunkSet, error) {
	f, err := s.media.Open(session.FilePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	pdf, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading stored pdf: %w", err)
	}

	meta := sessionMetadata{}
	var chunks []content.Chunk

	if s.extractor != nil {
		pageCount, err := s.extractor.PageCount(ctx, session.FilePath)
		if err == nil && pageCount > 0 {
			batches := content.PageBatches(pageCount, s.genCfg.PDFBatchSize, s.genCfg.PDFBatchOverlap)
			for i, batch := range batches {
				chunks = append(chunks, content.Chunk{
					Index: i,
					Text:  pageRangeInstruction(batch, pageCount),
				})
			}
			meta.PageCount = pageCount
			meta.BatchStrategy = fmt.Sprintf("%d_pages_%d_overlap", s.genCfg.PDFBatchSize, s.genCfg.PDFBatchOverlap)
		}
	}
	if len(chunks) == 0 {
		chunks = []content.Chunk{{Index: 0, Text: "The attached PDF document."}}
	}

	return &chunkSet{chunks: chunks, pdf: pdf, meta: meta, baseMeta: true}, nil
}

func (s *SessionService) extractPDFText(ctx context.Context, session *domain.Session) (*chunkSet, error) {
	if s.extractor == nil {
		return nil, ErrPDFNotSupported
	}
	text, err := s.extractor.ExtractText(ctx, session.FilePath)
	if err != nil {
		return nil, fmt.Errorf("pdf text extraction failed: %w", err)
	}
	return &chunkSet{
		chunks:   content.SegmentText(text, s.genCfg.ChunkSize),
		baseMeta: true,
	}, nil
}

// failSession records a pipeline-level failure on the session and returns
// an error carrying the reason.
func (s *SessionService) failSession(ctx context.Context, session *domain.Session, reason string) error {
	if err := session.MarkFailed(reason); err != nil {
		return fmt.Errorf("generation failed (%s), and the session could not be marked failed: %w", reason, err)
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", generation.ErrGenerationFailed, reason)
}

// returnToReady puts a session back into ready after a continuation-level
// failure: the cards generated before the continuation are untouched.
func (s *SessionService) returnToReady(ctx context.Context, session *domain.Session, cause error) error {
	if err := session.MarkReady(); err != nil {
		return err
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}
	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, cause)
}

// finishGeneration persists the completed session together with its prompt
// version's generation counter.
func (s *SessionService) finishGeneration(ctx context.Context, session *domain.Session, pv *domain.PromptVersion, cards int) error {
	return s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.sessions.WithTx(tx).Update(ctx, session); err != nil {
			return err
		}
		pv.RecordGeneration(cards)
		return s.prompts.WithTx(tx).Update(ctx, pv)
	})
}

// dedupContext caps the existing-card context fed back to the model at 100
// non-rejected cards.
func dedupContext(cards []*domain.Card) []*domain.Card {
	out := make([]*domain.Card, 0, len(cards))
	for _, card := range cards {
		if card.Status == domain.CardStatusRejected {
			continue
		}
		out = append(out, card)
		if len(out) == 100 {
			break
		}
	}
	return out
}

// referencedImages returns the chunk image names a candidate actually uses,
// either via its images array or [IMAGE: name] references in its text.
func referencedImages(c generation.CandidateCard, names []string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, name := range c.Images {
		base := filepath.Base(name)
		if !seen[base] && containsName(names, base) {
			seen[base] = true
			refs = append(refs, base)
		}
	}
	text := c.Front + "\n" + c.Back
	for _, name := range names {
		if !seen[name] && strings.Contains(text, name) {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// pageRangeInstruction renders the content block for one native-PDF page
// batch; pages are one-based for the model.
func pageRangeInstruction(pages []int, pageCount int) string {
	if len(pages) == 0 {
		return "The attached PDF document."
	}
	return fmt.Sprintf(
		"The attached PDF document. Focus ONLY on pages %d through %d of %d; earlier pages may appear for context only.",
		pages[0]+1, pages[len(pages)-1]+1, pageCount)
}

// mediaTypeFor resolves an image filename to a MIME type, defaulting to
// PNG for unknown extensions.
func mediaTypeFor(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" && strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/png"
}
