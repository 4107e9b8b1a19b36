// Package lib 包含基础设施工具库
//
// 本目录包含与架构组件无关的通用工具库：
//
//   - future: 异步结果（Promise/Future）与监听器
//   - log: 基于 slog 的分组件日志
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含四类内容：
//
//   - interfaces/: 组件公共接口
//   - types/: 节点与应用标识
//   - messages/: 消息类型与注册表
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import (
//	    "github.com/dep2p/go-modnet/pkg/lib/future"
//	    "github.com/dep2p/go-modnet/pkg/lib/log"
//	)
package lib
