package knowledge

import "testing"

func doc(id string) Document {
	return Document{ID: id, Content: "content " + id}
}

func TestFuseRRFBoostsDocumentsInBothLists(t *testing.T) {
	knn := []candidate{{doc: doc("a")}, {doc: doc("b")}, {doc: doc("c")}}
	lexical := []candidate{{doc: doc("c")}, {doc: doc("d")}}

	results := fuseRRF(knn, lexical, 10)
	if len(results) != 4 {
		t.Fatalf("fuseRRF() returned %d results, want 4", len(results))
	}

	// "c" appears in both rankings: 1/(60+3) + 1/(60+1) beats "a" at 1/(60+1)
	if results[0].Document.ID != "c" {
		t.Errorf("top result = %q, want %q (present in both rankings)", results[0].Document.ID, "c")
	}

	wantScore := float32(1.0/63.0 + 1.0/61.0)
	if got := results[0].Score; got != wantScore {
		t.Errorf("fused score = %v, want %v", got, wantScore)
	}
}

func TestFuseRRFVectorOnly(t *testing.T) {
	knn := []candidate{{doc: doc("a")}, {doc: doc("b")}}

	results := fuseRRF(knn, nil, 10)
	if len(results) != 2 {
		t.Fatalf("fuseRRF() returned %d results, want 2", len(results))
	}
	if results[0].Document.ID != "a" || results[1].Document.ID != "b" {
		t.Errorf("vector-only fusion changed ordering: %q, %q", results[0].Document.ID, results[1].Document.ID)
	}

	// Single-list RRF still produces scores on the same scale
	if got, want := results[0].Score, float32(1.0/61.0); got != want {
		t.Errorf("rank-1 score = %v, want %v", got, want)
	}
}

func TestFuseRRFLimit(t *testing.T) {
	knn := []candidate{{doc: doc("a")}, {doc: doc("b")}, {doc: doc("c")}}

	results := fuseRRF(knn, nil, 2)
	if len(results) != 2 {
		t.Fatalf("fuseRRF() returned %d results, want 2", len(results))
	}
}

func TestFuseRRFEmptyReturnsNil(t *testing.T) {
	if results := fuseRRF(nil, nil, 10); results != nil {
		t.Errorf("fuseRRF(nil, nil) = %v, want nil", results)
	}
}
