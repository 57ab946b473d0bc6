// Package adapter 维护赛程来源的工厂注册表。
package adapter

import (
	"fmt"
	"sort"

	"LA28Sync/internal/config"
	"LA28Sync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

var factoryRegistry = make(map[string]interfaces.SourceFactory)

// Register 供来源实现的 init 调用，注册工厂函数
func Register(kind string, factory interfaces.SourceFactory) {
	if factory == nil {
		panic(fmt.Sprintf("赛程来源%s的工厂函数不能为nil", kind))
	}
	if _, exists := factoryRegistry[kind]; exists {
		logrus.Warnf("赛程来源%s已注册，将覆盖原有实现", kind)
	}
	factoryRegistry[kind] = factory
}

// GetFactory 获取指定来源的工厂函数
func GetFactory(kind string) (interfaces.SourceFactory, bool) {
	factory, ok := factoryRegistry[kind]
	return factory, ok
}

// ListFactories 已注册的来源类型（排序后）
func ListFactories() []string {
	kinds := make([]string, 0, len(factoryRegistry))
	for k := range factoryRegistry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewSource 按 schedule.source 创建来源实例
func NewSource(cfg *config.ScheduleConfig, logger *logrus.Logger) (interfaces.ScheduleSource, error) {
	factory, ok := GetFactory(cfg.Source)
	if !ok {
		return nil, fmt.Errorf("未支持的赛程来源: %s（已注册：%v）", cfg.Source, ListFactories())
	}
	src := factory(cfg, logger)
	if src == nil {
		return nil, fmt.Errorf("赛程来源%s的工厂函数返回nil", cfg.Source)
	}
	logger.WithField("source", src.Name()).Info("赛程来源初始化成功")
	return src, nil
}
