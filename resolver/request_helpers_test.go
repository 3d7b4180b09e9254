package resolver

import (
	"net"
	"time"

	"github.com/quietdns/vdns/model"
	"github.com/quietdns/vdns/util"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

func newRequest(question string, rType dns.Type) *model.Request {
	return &model.Request{
		Req: util.NewMsgWithQuestion(question, uint16(rType)),
		Log: logrus.NewEntry(logrus.New()),
	}
}

func newRequestWithClient(question string, rType dns.Type, ip string, clientNames ...string) *model.Request {
	return &model.Request{
		ClientIP:    net.ParseIP(ip),
		ClientNames: clientNames,
		Req:         util.NewMsgWithQuestion(question, uint16(rType)),
		Log:         logrus.NewEntry(logrus.New()),
		RequestTS:   time.Time{},
	}
}
