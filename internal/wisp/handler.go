package wisp

// Handler-table encoding shared between the compiler (which emits it
// after OpData) and the dispatch loop (which reads it while unwinding,
// spec.md §4.G "try/catch" and §4.K).
//
// Layout, starting at the byte right after the OpData opcode itself:
//
//	[totalBytes uint16][record]*
//
// where each record is fixed-width HandlerRecordSize bytes:
//
//	[varType byte][handle uint16][targetOffset uint16]
const HandlerRecordSize = 5

// WriteHandlerTable appends a handler table (the `DATA` marker plus
// its records) to chunk and returns the byte offset of the DATA
// opcode itself (what PUSH_EXCEPTION_HANDLER's operand points at).
func (c *Chunk) WriteHandlerTable(records []HandlerRecord, line int) int {
	dataOffset := c.WriteOp(OpData, line)
	totalBytes := uint16(len(records) * HandlerRecordSize)
	c.WriteU16(totalBytes, line)
	for _, r := range records {
		c.Write(byte(r.VarType), line)
		c.WriteU16(r.Handle, line)
		c.WriteU16(r.TargetOffset, line)
	}
	return dataOffset
}

// HandlerRecord is one catch clause within a handler table: where to
// find the exception-type class value (VarType/Handle) and where
// execution resumes if it matches (TargetOffset).
type HandlerRecord struct {
	VarType      StorageClass
	Handle       uint16
	TargetOffset uint16
}

// ReadHandlerTable decodes the records starting immediately after the
// DATA opcode at dataOffset.
func ReadHandlerTable(chunk *Chunk, dataOffset int) []HandlerRecord {
	pos := dataOffset + 1 // skip OpData itself
	totalBytes := int(chunk.Code[pos])<<8 | int(chunk.Code[pos+1])
	pos += 2
	count := totalBytes / HandlerRecordSize
	records := make([]HandlerRecord, 0, count)
	for i := 0; i < count; i++ {
		varType := StorageClass(chunk.Code[pos])
		handle := uint16(chunk.Code[pos+1])<<8 | uint16(chunk.Code[pos+2])
		target := uint16(chunk.Code[pos+3])<<8 | uint16(chunk.Code[pos+4])
		records = append(records, HandlerRecord{VarType: varType, Handle: handle, TargetOffset: target})
		pos += HandlerRecordSize
	}
	return records
}
