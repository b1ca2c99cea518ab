package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliodocs/folio/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals DocumentProcessedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.DocumentProcessedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeDocumentProcessed,
			EventID:       "evt_123",
			EmittedAt:     now,
			Document: eventstream.DocumentRef{
				DocumentID:   "doc-1",
				CollectionID: "handbook",
				Name:         "handbook.txt",
				ContentType:  "text/plain",
			},
			Indexing: eventstream.IndexMeta{
				Status:     "completed",
				ChunkCount: 12,
				DurationMs: 340,
			},
		}

		data, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(data, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("document"))
		Expect(got).To(HaveKey("indexing"))
	})

	It("omits empty failure fields", func() {
		data, err := json.Marshal(eventstream.IndexMeta{Status: "completed"})
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(data, &got)).To(Succeed())
		Expect(got).NotTo(HaveKey("error"))
		Expect(got).NotTo(HaveKey("failed_chunks"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeDocumentProcessed).To(Equal("folio.document.processed"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilEvent).To(MatchError("nil document event"))
	})
})
