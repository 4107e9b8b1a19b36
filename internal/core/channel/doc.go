// Package channel 实现通道与节点通道注册表
//
// Channel 封装一条字节流连接：有序非阻塞的出站队列、按接收顺序
// 处理的入站读循环，以及关闭 Future。
//
// Registry 负责所有通道的簿记与去重：
//   - 每个通道的远端 ID 只能设置一次
//   - 激活标志单调 false → true
//   - SetActiveIfFirst 在同一把锁下检查并激活，保证同一节点对
//     最多只有一个激活通道；胜出回调在激活可见前执行
//   - 节点级 established/closed 事件按发生顺序异步投递，
//     每个节点只在第一个通道激活、最后一个激活通道关闭时各触发一次
//
// 通道状态由字段推导：
//
//	Connected → IdentityExchanged → Active
//	    └──────────────┴──────────────┴──→ Closed
package channel
