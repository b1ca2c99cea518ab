package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
	"github.com/foliodocs/folio/pkg/vector/chroma"
	"github.com/foliodocs/folio/pkg/vector/memory"
	"github.com/foliodocs/folio/pkg/vector/pgvector"
	"github.com/foliodocs/folio/pkg/vector/sqlitevec"
	"github.com/foliodocs/folio/pkg/vector/weaviate"
)

type NewStoreOpts struct {
	ProviderType string
	TargetURL    string
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

func NewStore(ctx context.Context, o *NewStoreOpts) (vector.Store, error) {
	switch o.ProviderType {
	case "memory":
		return memory.NewStore(o.Logger), nil
	case "chroma":
		return chroma.NewStore(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "weaviate":
		return weaviate.NewStore(weaviate.Config{
			URL:        o.TargetURL,
			ClassName:  o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "sqlitevec":
		return sqlitevec.NewStore(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "pgvector":
		return pgvector.NewStore(ctx, pgvector.Config{
			ConnString: o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
