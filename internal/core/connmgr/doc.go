// Package connmgr 实现连接管理门面
//
// Manager 把各组件装配成一个可用的节点：
//
//	transport  拨号与监听
//	channel    通道注册表与节点级连接事件
//	handshake  Hello / ConnectionEstablished 去重
//	dispatch   按类型链查找处理器并回送响应
//	correlator 请求与响应关联、超时
//	listener   监听套接字与 Accept 循环
//
// # 使用
//
//	mgr, err := connmgr.New(cfg, tcp.NewTransport(tcp.DefaultConfig()), nil)
//	if err != nil {
//	    return err
//	}
//	defer mgr.Close()
//
//	mgr.AddHandler("ping", handler)
//	addr, _ := mgr.StartListening("0.0.0.0:7000")
//	resp, err := mgr.SendMessage(peer, msg).Get(ctx)
//
// 发现组件通过 BeaconFound 把候选地址交给 Manager，Manager 对尚无
// 激活通道的节点逐个拨号，短时间内不重复拨同一地址。
package connmgr
