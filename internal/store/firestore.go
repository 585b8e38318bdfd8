package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

const (
	// rowsCollection is the subcollection holding a record's row chunks.
	rowsCollection = "rows"
	// chunkBudget bounds the estimated encoded size of one chunk document,
	// well under Firestore's 1 MiB document limit.
	chunkBudget = 512 << 10
)

// firestoreRow wraps a row because Firestore does not allow nested arrays.
type firestoreRow struct {
	Cells []string `firestore:"cells"`
}

type firestoreRecord struct {
	Document models.Document `firestore:"document"`
	Chunks   int             `firestore:"chunks"`
}

type firestoreChunk struct {
	Rows []firestoreRow `firestore:"rows"`
}

func encodeRows(rows []models.Row) []firestoreRow {
	out := make([]firestoreRow, len(rows))
	for i, r := range rows {
		cells := []string(r)
		if cells == nil {
			cells = []string{}
		}
		out[i] = firestoreRow{Cells: cells}
	}
	return out
}

func decodeRows(rows []firestoreRow) []models.Row {
	out := make([]models.Row, len(rows))
	for i, r := range rows {
		out[i] = models.Row(r.Cells)
	}
	return out
}

// chunkRows splits rows into consecutive runs whose estimated encoded size
// stays within budget. A single oversized row gets a chunk of its own.
func chunkRows(rows []models.Row, budget int) [][]models.Row {
	var chunks [][]models.Row
	var cur []models.Row
	size := 0
	for _, r := range rows {
		n := 16
		for _, c := range r {
			n += len(c) + 2
		}
		if len(cur) > 0 && size+n > budget {
			chunks = append(chunks, cur)
			cur, size = nil, 0
		}
		cur = append(cur, r)
		size += n
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

func chunkID(i int) string { return fmt.Sprintf("%06d", i) }

// FirestoreStore keeps one Firestore document per record, with its rows in
// a "rows" subcollection split into chunks so that large extractions stay
// under the per-document size limit. The record and its chunks are written
// in one transaction, so the whole request must stay under Firestore's
// 10 MiB commit limit.
type FirestoreStore struct {
	client     *firestore.Client
	collection *firestore.CollectionRef
	artifacts  artifact.Cache
	logger     *slog.Logger
	now        func() time.Time
}

func NewFirestoreStore(client *firestore.Client, collection string, cache artifact.Cache, logger *slog.Logger) *FirestoreStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FirestoreStore{
		client:     client,
		collection: client.Collection(collection),
		artifacts:  cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Create writes the record with Transaction.Create, which fails for an
// existing document and makes allocation an atomic create-if-absent.
func (s *FirestoreStore) Create(ctx context.Context, doc models.Document, rows []models.Row, st models.Status) (string, error) {
	chunks := chunkRows(rows, chunkBudget)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id := newID()
		ref := s.collection.Doc(id)
		rec := firestoreRecord{
			Document: prepare(doc, id, rows, st, s.now()),
			Chunks:   len(chunks),
		}
		err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			if err := tx.Create(ref, rec); err != nil {
				return err
			}
			for i, c := range chunks {
				if err := tx.Create(ref.Collection(rowsCollection).Doc(chunkID(i)), firestoreChunk{Rows: encodeRows(c)}); err != nil {
					return err
				}
			}
			return nil
		})
		if status.Code(err) == codes.AlreadyExists {
			s.logger.Warn("Generated id already used, retrying.", "documentId", id)
			continue
		}
		if err != nil {
			return "", storageFailure("failed to create firestore document", err)
		}
		return id, nil
	}
	return "", storageFailure("failed to allocate document id", errIDTaken)
}

// Get reads the record and its chunks in one read-only transaction so a
// concurrent Delete cannot leave it with a partial row set.
func (s *FirestoreStore) Get(ctx context.Context, id string) (*Record, error) {
	ref := s.collection.Doc(id)
	var (
		rec     firestoreRecord
		rows    []models.Row
		missing bool
	)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		missing, rows = false, nil
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}
		if err := snap.DataTo(&rec); err != nil {
			return err
		}
		chunks, err := tx.Documents(ref.Collection(rowsCollection).OrderBy(firestore.DocumentID, firestore.Asc)).GetAll()
		if err != nil {
			return err
		}
		if len(chunks) != rec.Chunks {
			return fmt.Errorf("record %s has %d of %d row chunks", id, len(chunks), rec.Chunks)
		}
		for _, c := range chunks {
			var fc firestoreChunk
			if err := c.DataTo(&fc); err != nil {
				return err
			}
			rows = append(rows, decodeRows(fc.Rows)...)
		}
		return nil
	}, firestore.ReadOnly)
	if err != nil {
		return nil, storageFailure("failed to read firestore document", err)
	}
	if missing {
		return nil, notFound(id)
	}
	return &Record{Document: rec.Document, Rows: rows}, nil
}

func (s *FirestoreStore) exists(id string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		_, err := s.collection.Doc(id).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		if err != nil {
			return false, storageFailure("failed to read firestore document", err)
		}
		return true, nil
	}
}

// Delete clears the cached artifact, removes the record so readers stop
// seeing it, then removes its row chunks and the artifact again to catch a
// concurrent SaveArtifact. A failure before the record is gone leaves it
// for the retention sweep to retry.
func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if err := s.artifacts.Delete(ctx, id); err != nil {
		return storageFailure("failed to delete cached artifact", err)
	}
	ref := s.collection.Doc(id)
	if _, err := ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return storageFailure("failed to delete firestore document", err)
	}
	it := ref.Collection(rowsCollection).DocumentRefs(ctx)
	for {
		chunk, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return storageFailure("failed to list row chunks", err)
		}
		if _, err := chunk.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
			return storageFailure("failed to delete row chunk", err)
		}
	}
	if err := s.artifacts.Delete(ctx, id); err != nil {
		return storageFailure("failed to delete cached artifact", err)
	}
	return nil
}

func (s *FirestoreStore) LoadArtifact(ctx context.Context, id string) ([]byte, error) {
	return loadChecked(ctx, s.artifacts, id, s.exists(id))
}

func (s *FirestoreStore) SaveArtifact(ctx context.Context, id string, data []byte) error {
	return saveChecked(ctx, s.artifacts, id, data, s.exists(id))
}

func (s *FirestoreStore) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	it := s.collection.Where("document.createdAt", "<", cutoff).Documents(ctx)
	defer it.Stop()

	var ids []string
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, storageFailure("failed to query firestore", err)
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func (s *FirestoreStore) FindByHash(ctx context.Context, hash string) (string, error) {
	if hash == "" {
		return "", nil
	}
	docs, err := s.collection.Where("document.fileHash", "==", hash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", storageFailure("failed to query for duplicates", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, nil
	}
	return "", nil
}
