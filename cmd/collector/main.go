package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/user/frameiq/internal/config"
	"github.com/user/frameiq/internal/service"
)

// 采集器：从 TMDb 拉取近几年热门作品的完整数据，
// 与上一次的工件合并去重后写出 JSON，供 indexer 嵌入入库。
func main() {
	var (
		output   = flag.String("output", "data/media.json", "采集工件输出路径")
		maxPages = flag.Int("pages", 10, "每个年份每种类型最多拉取的页数")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}
	cfg := config.Load()
	if cfg.TMDBAPIKey == "" {
		log.Fatal("缺少 TMDB_API_KEY")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("[Collector] 收到中断信号，保存已采集的数据后退出")
		cancel()
	}()

	tmdb := service.NewTMDBService(cfg.TMDBAPIKey)
	collector := service.NewCollectorService(tmdb)

	existing, err := service.LoadRecords(*output)
	if err != nil {
		log.Fatalf("读取上次工件失败: %v", err)
	}
	log.Printf("[Collector] 已有记录 %d 条", len(existing))

	incoming, err := collector.CollectRecent(ctx, cfg.RAGYearsBack, *maxPages)
	if err != nil && ctx.Err() == nil {
		log.Fatalf("采集失败: %v", err)
	}
	log.Printf("[Collector] 本次采集 %d 条", len(incoming))

	// 合并去重：同一作品只保留一条，数据更丰富或已上映的覆盖旧记录
	reconciler := service.NewReconciler(cfg.EnrichmentRatio)
	merged, stats := reconciler.Merge(existing, incoming)
	log.Printf("[Collector] 合并完成: 新增 %d，更新 %d，跳过 %d，最终 %d 条",
		stats.Added, stats.Updated, stats.Skipped, stats.TotalFinal)

	if err := service.SaveRecords(*output, merged); err != nil {
		log.Fatalf("写出工件失败: %v", err)
	}
	log.Printf("[Collector] 工件已写入 %s", *output)
}
