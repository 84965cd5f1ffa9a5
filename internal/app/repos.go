package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/videosearch-backend/internal/data/repos/videoindex"
	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

type Repos struct {
	Assets     videoindex.AssetRepo
	Jobs       videoindex.JobRepo
	Segments   videoindex.SegmentRepo
	Embeddings videoindex.EmbeddingRepo
}

func wireRepos(gdb *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Assets:     videoindex.NewAssetRepo(gdb, log),
		Jobs:       videoindex.NewJobRepo(gdb, log),
		Segments:   videoindex.NewSegmentRepo(gdb, log),
		Embeddings: videoindex.NewEmbeddingRepo(gdb, log),
	}
}
