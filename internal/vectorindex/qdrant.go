package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// ontologyPayloadField carries the owning ontology so Search can filter by
// it; originalIDField recovers the caller's own id, since Qdrant only
// accepts UUID or integer point ids.
const (
	ontologyPayloadField = "_ontology"
	originalIDField       = "_original_id"
)

// QdrantIndex is an Index backed by Qdrant, grounded on the same
// deterministic-UUID-from-id and payload-recovery approach used elsewhere
// in this codebase's Qdrant integration.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dims       int
}

// NewQdrant connects to Qdrant over gRPC (default port 6334) and ensures the
// configured collection exists with cosine distance.
func NewQdrant(ctx context.Context, host string, port int, apiKey string, useTLS bool, collection string, dims int) (*QdrantIndex, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if port <= 0 {
		port = 6334
	}
	cfg := &qdrant.Config{Host: host, Port: port, UseTLS: useTLS}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	idx := &QdrantIndex{client: client, collection: collection, dims: dims}
	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	if q.dims <= 0 {
		return fmt.Errorf("qdrant requires dimensions > 0")
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Dimensions() int { return q.dims }

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *QdrantIndex) Upsert(ctx context.Context, id, ontology string, vector []float32) error {
	uuidStr := pointUUID(id)
	payload := map[string]any{ontologyPayloadField: ontology}
	if uuidStr != id {
		payload[originalIDField] = id
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	points := []*qdrant.PointStruct{{
		Id:      qdrant.NewIDUUID(uuidStr),
		Vectors: qdrant.NewVectorsDense(vec),
		Payload: qdrant.NewValueMap(payload),
	}}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: q.collection, Points: points})
	return err
}

func (q *QdrantIndex) Delete(ctx context.Context, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(pointUUID(id))),
	})
	return err
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, ontology string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	var filter *qdrant.Filter
	if ontology != "" {
		filter = &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(ontologyPayloadField, ontology)}}
	}
	limit := uint64(topK)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(hits))
	for _, hit := range hits {
		uuidStr := hit.Id.GetUuid()
		id := uuidStr
		var ont string
		if hit.Payload != nil {
			if v, ok := hit.Payload[originalIDField]; ok {
				id = v.GetStringValue()
			}
			if v, ok := hit.Payload[ontologyPayloadField]; ok {
				ont = v.GetStringValue()
			}
		}
		out = append(out, Match{ID: id, Similarity: float64(hit.Score), Ontology: ont})
	}
	return out, nil
}

func (q *QdrantIndex) Close() error { return q.client.Close() }
