package zec

import (
	"sync"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// lightdInfo's scalar fields, as lightwalletd's service.proto defines
// them. Hand-built here as a FileDescriptorProto instead of compiling
// a .proto file: the adapter never needs anything but GetLightdInfo's
// request/response shape, and this keeps the package dependency-free
// beyond the protobuf/grpc runtime already used elsewhere in hosh.
var (
	descOnce       sync.Once
	lightdInfoDesc protoreflect.MessageDescriptor
	emptyDesc      protoreflect.MessageDescriptor
	lightdFields   map[string]protoreflect.FieldDescriptor
)

func scalarField(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	return &descriptorpb.FieldDescriptorProto{
		Name:   &name,
		Number: &number,
		Label:  &label,
		Type:   &kind,
	}
}

func buildDescriptors() {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING
	u64 := descriptorpb.FieldDescriptorProto_TYPE_UINT64
	boolType := descriptorpb.FieldDescriptorProto_TYPE_BOOL

	lightdInfoName := "LightdInfo"
	emptyName := "Empty"
	fileName := "hosh/internal/probe/zec/compact_tx_streamer.proto"
	pkg := "cash.z.wallet.sdk.rpc"
	syntax := "proto3"

	fd := &descriptorpb.FileDescriptorProto{
		Name:    &fileName,
		Package: &pkg,
		Syntax:  &syntax,
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: &lightdInfoName,
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("version", 1, str),
					scalarField("vendor", 2, str),
					scalarField("taddr_support", 3, boolType),
					scalarField("chain_name", 4, str),
					scalarField("sapling_activation_height", 5, u64),
					scalarField("consensus_branch_id", 6, str),
					scalarField("block_height", 7, u64),
					scalarField("git_commit", 8, str),
					scalarField("branch", 9, str),
					scalarField("build_date", 10, str),
					scalarField("build_user", 11, str),
					scalarField("estimated_height", 12, u64),
					scalarField("zcashd_build", 13, str),
					scalarField("zcashd_subversion", 14, str),
				},
			},
			{Name: &emptyName},
		},
	}

	file, err := protodesc.NewFile(fd, nil)
	if err != nil {
		panic("zec: failed to build LightdInfo descriptor: " + err.Error())
	}

	lightdInfoDesc = file.Messages().ByName(protoreflect.Name(lightdInfoName))
	emptyDesc = file.Messages().ByName(protoreflect.Name(emptyName))

	lightdFields = make(map[string]protoreflect.FieldDescriptor, lightdInfoDesc.Fields().Len())
	for i := 0; i < lightdInfoDesc.Fields().Len(); i++ {
		f := lightdInfoDesc.Fields().Get(i)
		lightdFields[string(f.Name())] = f
	}
}

func ensureDescriptors() {
	descOnce.Do(buildDescriptors)
}

func newEmptyRequest() *dynamicpb.Message {
	ensureDescriptors()
	return dynamicpb.NewMessage(emptyDesc)
}

func newLightdInfoReply() *dynamicpb.Message {
	ensureDescriptors()
	return dynamicpb.NewMessage(lightdInfoDesc)
}

func lightdInfoString(m *dynamicpb.Message, name string) string {
	f := lightdFields[name]
	return m.Get(f).String()
}

func lightdInfoUint64(m *dynamicpb.Message, name string) uint64 {
	f := lightdFields[name]
	return m.Get(f).Uint()
}

func lightdInfoBool(m *dynamicpb.Message, name string) bool {
	f := lightdFields[name]
	return m.Get(f).Bool()
}
