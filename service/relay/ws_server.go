package relay

import (
	"context"
	"net"
	"net/http"
	"time"

	"PRelay/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 5 * time.Second

// wsConn 把 *websocket.Conn 适配成会话需要的 Conn。
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) WriteText(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

// HandleWS 升级 WebSocket 并进入读循环。一条连接一个 goroutine 读，
// 会话清理挂在 defer 上：正常登出、读错误、对端掉线都保证执行一次。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	sess := s.NewSession(&wsConn{ws: ws})
	defer sess.Close("connection dropped")

	logger.Infof("[ws] connected id=%s remote=%s", sess.ID(), ws.RemoteAddr())

	// 不用请求的 ctx：连接断开不能打断进行中的 append，落库要么完成要么失败
	ctx := context.Background()
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed id=%s err=%v", sess.ID(), rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout id=%s err=%v", sess.ID(), rerr)
			} else {
				logger.Infof("[ws] read err id=%s err=%v", sess.ID(), rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		sess.HandleFrame(ctx, data)

		if sess.State() == StateClosed {
			break
		}
	}
}
