package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/user/frameiq/internal/config"
	"github.com/user/frameiq/internal/repository"
	"github.com/user/frameiq/internal/service"
	"github.com/user/frameiq/internal/utils"
)

// 索引器：读取采集工件，为每条记录生成富文本描述与嵌入向量，
// 批量写入向量库。可重复执行，相同内容重复嵌入结果幂等。
func main() {
	input := flag.String("input", "data/media.json", "采集工件路径")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}
	cfg := config.Load()

	records, err := service.LoadRecords(*input)
	if err != nil {
		log.Fatalf("读取工件失败: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("工件 %s 为空，请先运行 collector", *input)
	}
	log.Printf("[Indexer] 载入 %d 条记录", len(records))

	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	embedder := utils.NewEmbedder(cfg.OllamaHost, cfg.OllamaModel, cfg.EmbeddingDim)
	repos := repository.NewRepositories(db, embedder)

	if err := repos.Migrate(); err != nil {
		log.Fatalf("表结构初始化失败: %v", err)
	}

	ctx := context.Background()
	ok, failed := service.IndexRecords(ctx, repos.Vector, records)
	log.Printf("[Indexer] 完成: 成功 %d 条，失败 %d 条", ok, failed)

	total, err := repos.Vector.Count(ctx)
	if err == nil {
		log.Printf("[Indexer] 向量库现有 %d 条记录", total)
	}

	// 抽样检索，肉眼确认嵌入质量
	for _, query := range []string{"mind-bending science fiction thriller", "dark crime drama series"} {
		hits := repos.Vector.Search(ctx, query, 3, nil)
		for _, hit := range hits {
			log.Printf("[Indexer] 抽样 %q -> %s (距离 %.4f)", query, hit.Metadata.Title, hit.Distance)
		}
	}
}
