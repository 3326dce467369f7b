package input

import (
	"context"
	"fmt"
	"os"
	"time"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v2"
)

// 从MongoDB下载回放数据的超时
const downloadTimeout = 30 * time.Second

// LoadReplay 加载回放数据
// 功能：根据配置从文件或MongoDB加载按时间排序的负载记录
// 参数：c-回放负载源配置
// 返回：负载记录列表（非空），加载失败或没有记录时返回错误
// 算法说明：
// 1. 指定了文件时从YAML文件读取（优先级高于MongoDB）
// 2. 否则连接MongoDB，从input.db/input.col按t升序读取全部记录
// 3. 检查记录非空、进口道车辆数非负
func LoadReplay(c config.ReplayLoad) (records []Record, err error) {
	if c.Input.File != "" {
		records, err = loadFromFile(c.Input.File)
	} else {
		records, err = loadFromMongo(c.URI, c.Input)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input: no replay records in %s", describe(c.Input))
	}
	for i, r := range records {
		if err := r.check(); err != nil {
			return nil, fmt.Errorf("input: record %d: %w", i, err)
		}
	}
	log.Infof("loaded %d replay records from %s", len(records), describe(c.Input))
	return records, nil
}

// loadFromFile 从YAML文件读取负载记录
func loadFromFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input: read replay file: %w", err)
	}
	var records []Record
	if err := yaml.UnmarshalStrict(data, &records); err != nil {
		return nil, fmt.Errorf("input: parse replay file %s: %w", path, err)
	}
	return records, nil
}

// loadFromMongo 从MongoDB集合读取负载记录
func loadFromMongo(uri string, path config.InputPath) ([]Record, error) {
	if uri == "" || path.DB == "" || path.Col == "" {
		return nil, fmt.Errorf("input: replay needs either input.file or uri with input.db and input.col")
	}
	client := mongoutil.NewClient(uri)
	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()
	defer client.Disconnect(context.Background())

	log.Infof("start fetching from %s.%s", path.DB, path.Col)
	coll := mongoutil.GetMongoColl(client, path)
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "t", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("input: query %s.%s: %w", path.DB, path.Col, err)
	}
	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("input: decode %s.%s: %w", path.DB, path.Col, err)
	}
	log.Infof("finish fetching from %s.%s", path.DB, path.Col)
	return records, nil
}

func describe(p config.InputPath) string {
	if p.File != "" {
		return p.File
	}
	return p.DB + "." + p.Col
}
